package auth

import (
	"github.com/jrsteele09/assoc-portal/token/onetime"
	"github.com/jrsteele09/assoc-portal/users"
)

// Repos holds the repository dependencies of the Service. Refresh tokens
// live behind the token.Manager.
type Repos struct {
	Users   users.UserRepo
	OneTime onetime.Repo
}
