package roles

import "errors"

// ErrNoBijection is returned when raw role labels cannot be turned into one
// distinct role per hero.
var ErrNoBijection = errors.New("roles: no bijection")
