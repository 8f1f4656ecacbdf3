// Package directory provides catalogAuth.UserDirectory implementations.
//
// Memory keeps users in process and suits development and tests. Gorm
// stores them in PostgreSQL; its schema is applied by Migrate from the
// goose migrations embedded in this package.
//
// Both return catalogAuth.ErrUserNotFound and catalogAuth.ErrUsernameTaken
// for the corresponding conditions.
package directory
