package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/maabara/core/actor"
)

func adminMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin && contextHasAnyRole(ctx, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func staffMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin || claims.IsTeacher {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// sessionMiddleware checks the JWT's embedded gate token against the
// actor's stored credential. A token acquired on another device replaces
// the stored value, so requests carrying the old one fail here: forced
// single-device logout.
func sessionMiddleware(gate *actor.Gate) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}

			c, cancel := reqCtx(ctx)
			defer cancel()
			if err := gate.Validate(c, claims.Subject, claims.SessionToken); err != nil {
				if errors.Cause(err) == actor.ErrInvalidSessionToken {
					return actor.ErrInvalidSessionToken
				}
				return errors.Wrap(err, "validating session token")
			}
			return next(ctx)
		}
	}
}
