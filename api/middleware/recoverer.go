package middleware

import (
	"fmt"
	"net/http"

	"github.com/reiger65/stonewhistle-workshop-manager/api/responses"
	pkgerrors "github.com/reiger65/stonewhistle-workshop-manager/pkg/errors"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/logger"
)

// Recoverer converts handler panics into logged 500 responses so one bad
// request never takes the workshop API down.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				err := fmt.Errorf("panic: %v", rec)
				ctx := r.Context()
				if logg != nil {
					ctx = logg.WithFields(ctx, map[string]any{"panic": rec, "path": r.URL.Path})
					logg.Error(ctx, "panic.recovered", err)
				}
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "panic"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
