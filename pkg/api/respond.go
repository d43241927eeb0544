package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/flashplan/pkg/catalog"
	fperrors "github.com/matzehuels/flashplan/pkg/errors"
	"github.com/matzehuels/flashplan/pkg/layout"
	"github.com/matzehuels/flashplan/pkg/observability"
	"github.com/matzehuels/flashplan/pkg/pmstatic"
)

// observe reports every request to the API hooks and logs it.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)

		observability.API().OnRequest(r.Context(), r.Method, route)
		observability.API().OnResponse(r.Context(), r.Method, route, status, elapsed)
		s.logger.Debug("request",
			"method", r.Method,
			"route", route,
			"status", status,
			"duration", elapsed,
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	writeJSON(w, status, ErrorResponse{Code: string(code), Message: fperrors.UserMessage(err)})
}

// classify maps an error to an HTTP status and an error code. Structured
// errors carry their code; bare sentinels from the layout, catalog and
// codec packages are mapped here.
func classify(err error) (int, fperrors.Code) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, fperrors.ErrCodeInvalidInput
	}

	code := fperrors.GetCode(err)
	if code == "" {
		switch {
		case errors.Is(err, catalog.ErrUnknownDevice):
			code = fperrors.ErrCodeDeviceNotFound
		case errors.Is(err, catalog.ErrUnknownTemplate):
			code = fperrors.ErrCodeTemplateNotFound
		case errors.Is(err, layout.ErrUnknownItem):
			code = fperrors.ErrCodeItemNotFound
		case errors.Is(err, pmstatic.ErrFormat):
			code = fperrors.ErrCodeInvalidFormat
		default:
			code = fperrors.ErrCodeInternal
		}
	}

	switch code {
	case fperrors.ErrCodeNotFound, fperrors.ErrCodeDeviceNotFound, fperrors.ErrCodeTemplateNotFound,
		fperrors.ErrCodeRegionNotFound, fperrors.ErrCodeItemNotFound, fperrors.ErrCodeFileNotFound,
		fperrors.ErrCodeSessionNotFound:
		return http.StatusNotFound, code
	case fperrors.ErrCodeDuplicateRegion, fperrors.ErrCodeDefaultRegion, fperrors.ErrCodeConflict:
		return http.StatusConflict, code
	case fperrors.ErrCodeInternal:
		return http.StatusInternalServerError, code
	case fperrors.ErrCodeUnsupported:
		return http.StatusNotImplemented, code
	}
	return http.StatusBadRequest, code
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return fperrors.Wrap(fperrors.ErrCodeInvalidInput, err, "decode request body")
	}
	return nil
}
