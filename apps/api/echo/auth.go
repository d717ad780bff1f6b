package echoapi

import (
	"context"
	"sort"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/maabara/core"
	"github.com/trezcool/maabara/core/actor"
)

var (
	// appJWTConfig is the default JWT auth middleware config.
	appJWTConfig = middleware.JWTConfig{
		SigningKey:    []byte(core.Conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    "actorToken",
		Claims:        new(Claims),
	}
	contextActorKey = "actor"
)

// Claims represents the authorization claims transmitted via a JWT.
// SessionToken carries the opaque gate token so each authed request can be
// checked against the actor's stored credential.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64    `json:"oriat,omitempty"`
	Username     string   `json:"username,omitempty"`
	Email        string   `json:"email,omitempty"`
	IsStudent    bool     `json:"is_student,omitempty"` // -> STUDENT PORTAL
	IsTeacher    bool     `json:"is_teacher,omitempty"` // -> TEACHER PORTAL
	IsAdmin      bool     `json:"is_admin,omitempty"`   // -> ADMIN PORTAL
	Roles        []string `json:"roles,omitempty"`
	SessionToken string   `json:"sid,omitempty"`
}

func GetActorClaims(act actor.Actor, sessionToken string, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    core.Conf.AppName,
			Subject:   act.ID,
			Audience:  "Maabara",
			ExpiresAt: now.Add(core.Conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Username:     act.Username,
		Email:        act.Email,
		IsStudent:    act.IsStudent(),
		IsTeacher:    act.IsTeacher(),
		IsAdmin:      act.IsAdmin(),
		Roles:        act.Roles,
		SessionToken: sessionToken,
	}
	return claims
}

// reqCtx bounds store calls with the configured timeout; expired calls
// surface as core.ErrTimeout and may be retried by the client for reads.
func reqCtx(ctx echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Request().Context(), core.Conf.Database.Timeout)
}

func authenticate(ctx context.Context, uname, pwd string, svc actor.Service) (actor.Actor, error) {
	act, err := svc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		if err == actor.ErrNotFound {
			return actor.Actor{}, errAuthenticationFailed
		}
		return actor.Actor{}, errors.Wrap(err, "finding actor by username or email")
	}
	if err = act.CheckPassword(pwd); err != nil {
		return actor.Actor{}, errAuthenticationFailed
	}
	if act.IsActive != nil && !*act.IsActive {
		return actor.Actor{}, errAccountDeactivated
	}
	act, err = svc.SetLastLogin(ctx, act)
	if err != nil {
		return actor.Actor{}, errors.Wrap(err, "setting lastLogin")
	}
	return act, nil
}

// GenerateToken generates a signed JWT token string representing the actor Claims.
func GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(appJWTConfig.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(appJWTConfig.SigningKey)
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(appJWTConfig.ContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextActor(ctx echo.Context, svc actor.Service, clms ...Claims) (actor.Actor, error) {
	if act, ok := ctx.Get(contextActorKey).(actor.Actor); ok {
		return act, nil
	}

	var claims Claims
	var err error
	if len(clms) > 0 {
		claims = clms[0]
	} else {
		claims, err = getContextClaims(ctx)
		if err != nil {
			return actor.Actor{}, errors.Wrap(err, "getting context claims")
		}
	}

	c, cancel := reqCtx(ctx)
	defer cancel()
	act, err := svc.GetByID(c, claims.Subject)
	if err != nil {
		return actor.Actor{}, errors.Wrap(err, "finding actor by ID")
	}
	ctx.Set(contextActorKey, act)
	return act, nil
}

func contextHasAnyRole(ctx echo.Context, roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	if claims, err := getContextClaims(ctx); err == nil {
		sort.Strings(claims.Roles)
		for _, role := range roles {
			if i := sort.SearchStrings(claims.Roles, role); i < len(claims.Roles) {
				if match := claims.Roles[i]; role == match {
					return true
				}
			}
		}
	}
	return false
}

func refreshToken(ctx echo.Context, svc actor.Service) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	act, err := getContextActor(ctx, svc, claims)
	if err != nil {
		return "", errors.Wrap(err, "getting context actor")
	}

	// check if actor is still active
	if act.IsActive != nil && !*act.IsActive {
		return "", errAccountDeactivated
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(core.Conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	newClaims := GetActorClaims(act, claims.SessionToken, claims.OrigIssuedAt)
	token, err := GenerateToken(newClaims)
	return token, errors.Wrap(err, "generating token")
}
