package catalogAuth

import "strings"

// Sanitize is the single conversion from a directory User to anything that
// leaves the authority. PublicUser has no credential field, so the result
// cannot leak one.
func Sanitize(u User) PublicUser {
	return PublicUser{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		DisplayName:  cloneString(u.DisplayName),
		Organization: cloneString(u.Organization),
		Role:         u.Role,
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
	}
}

// Summarize converts a User to the admin listing shape.
func Summarize(u User) UserSummary {
	return UserSummary{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
	}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// normalizeUsername is applied to every username on its way in, whether it is
// being stored or looked up.
func normalizeUsername(username string) string {
	return strings.TrimSpace(username)
}
