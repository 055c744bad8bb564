package errors

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
)

// errorResponse controla exactamente qué campos se envían al cliente.
type errorResponse struct {
	Code          string `json:"code"`
	Message       string `json:"message"`
	Detail        string `json:"detail,omitempty"`
	RequireReauth bool   `json:"requireReauth,omitempty"`
}

var exposeInternal atomic.Bool

func init() { exposeInternal.Store(true) }

// SetExposeInternal define si el Detail de errores 5xx llega al cliente.
// En prod se desactiva.
func SetExposeInternal(v bool) { exposeInternal.Store(v) }

// WriteError escribe la respuesta HTTP para err. Errores que no son
// *AppError se responden como 500.
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)

	resp := errorResponse{
		Code:          appErr.Code,
		Message:       appErr.Message,
		Detail:        appErr.Detail,
		RequireReauth: appErr.RequireReauth,
	}
	if appErr.HTTPStatus >= 500 {
		switch {
		case !exposeInternal.Load():
			resp.Detail = ""
		case resp.Detail == "" && appErr.Err != nil:
			resp.Detail = appErr.Err.Error()
		}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(resp)
}
