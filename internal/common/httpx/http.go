package httpx

import (
	"context"
	"io"
	"net/http"

	json "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"

	"github.com/tansive/metacatalog/internal/common/apperrors"
)

// GetRequestData decodes the JSON body of a POST, PUT or PATCH request into data.
func GetRequestData(r *http.Request, data any) error {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return ErrReqMethodNotSupported()
	}
	if r.Body == nil || r.Body == http.NoBody {
		log.Ctx(r.Context()).Error().Msg("empty request body")
		return ErrUnableToParseReqData()
	}
	if err := json.NewDecoder(r.Body).Decode(data); err != nil {
		if err == io.EOF {
			return ErrUnableToParseReqData("empty request body")
		}
		return ErrUnableToParseReqData(err.Error())
	}
	return nil
}

type Response struct {
	StatusCode  int
	Location    string //in case of http.StatusCreated
	Response    any
	ContentType string
}

type RequestHandler func(r *http.Request) (*Response, error)

func WrapHttpRsp(handler RequestHandler) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rsp, err := handler(r)
		if err != nil {
			if httperror, ok := err.(*Error); ok {
				httperror.Send(w)
			} else if appErr, ok := apperrors.As(err); ok {
				SendError(w, appErr)
			} else {
				ErrApplicationError(err.Error()).Send(w)
			}
			return
		}
		if rsp == nil {
			ErrApplicationError().Send(w)
			return
		}
		if rsp.StatusCode == http.StatusNoContent {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if rsp.ContentType == "" {
			rsp.ContentType = "application/json"
		}
		var location []string
		if rsp.Location != "" {
			location = append(location, rsp.Location)
		}
		if rsp.ContentType == "application/json" {
			SendJsonRsp(r.Context(), w, rsp.StatusCode, rsp.Response, location...)
		} else {
			ErrApplicationError("unsupported response type").Send(w)
		}
	})
}

// SendJsonRsp writes rsp as a JSON body with the given status. An optional
// location is sent as the Location header.
func SendJsonRsp(ctx context.Context, w http.ResponseWriter, statusCode int, rsp any, location ...string) {
	if statusCode == 0 {
		statusCode = http.StatusOK
	}
	b, err := json.Marshal(rsp)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("unable to marshal response")
		ErrApplicationError("unable to encode response").Send(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if len(location) > 0 && location[0] != "" {
		w.Header().Set("Location", location[0])
	}
	w.WriteHeader(statusCode)
	if _, err := w.Write(b); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("unable to write response")
	}
}

type ResponseHandlerParam struct {
	Method  string
	Path    string
	Handler RequestHandler
}
