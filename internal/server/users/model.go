package users

import "github.com/dmitrijs2005/tokenkeeper/internal/server/models"

// User is an identity allowed to log in.
type User = models.User
