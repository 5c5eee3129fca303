package apis

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tansive/metacatalog/internal/catalogsrv/meta"
	"github.com/tansive/metacatalog/internal/catalogsrv/schema/schemavalidator"
	"github.com/tansive/metacatalog/internal/common/apperrors"
	"github.com/tansive/metacatalog/internal/common/httpx"
	"github.com/tansive/metacatalog/pkg/types"
)

type CreateMetalakeReq struct {
	Name       string            `json:"name" validate:"required"`
	Comment    *string           `json:"comment,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

type UpdateReq struct {
	Comment    *string           `json:"comment,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

type CreateCatalogReq struct {
	Name       string            `json:"name" validate:"required"`
	Type       string            `json:"type" validate:"required"`
	Provider   string            `json:"provider" validate:"required"`
	Comment    *string           `json:"comment,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

type CreateSchemaReq struct {
	Name       string            `json:"name" validate:"required"`
	Comment    *string           `json:"comment,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

type CreateTableReq struct {
	Name       string            `json:"name" validate:"required"`
	Comment    *string           `json:"comment,omitempty"`
	Columns    []meta.Column     `json:"columns" validate:"required,min=1"`
	Properties map[string]string `json:"properties,omitempty"`
}

type CreateFilesetReq struct {
	Name            string            `json:"name" validate:"required"`
	Comment         *string           `json:"comment,omitempty"`
	Type            string            `json:"type,omitempty"`
	StorageLocation string            `json:"storageLocation,omitempty"`
	Properties      map[string]string `json:"properties,omitempty"`
}

type ListRsp struct {
	Identifiers []types.NameIdentifier `json:"identifiers"`
}

type DropRsp struct {
	Dropped bool `json:"dropped"`
}

// decodeRequest reads the JSON body into req and checks its validate tags.
func decodeRequest(r *http.Request, req any) error {
	if err := httpx.GetRequestData(r, req); err != nil {
		return err
	}
	if err := schemavalidator.V().Struct(req); err != nil {
		return ErrInvalidRequestBody.Msg(schemavalidator.ErrorMessage(err))
	}
	return nil
}

// pathIdent builds an identifier from the named URL parameters in order.
func pathIdent(r *http.Request, params ...string) (types.NameIdentifier, apperrors.Error) {
	levels := make([]string, len(params))
	for i, p := range params {
		levels[i] = chi.URLParam(r, p)
	}
	ident, err := types.NewNameIdentifier(levels...)
	if err != nil {
		return types.NameIdentifier{}, ErrInvalidPathParam.Err(err)
	}
	return ident, nil
}

// childIdent names a new object below parent.
func childIdent(parent types.NameIdentifier, name string) (types.NameIdentifier, apperrors.Error) {
	ns, err := parent.AsNamespace()
	if err != nil {
		return types.NameIdentifier{}, ErrInvalidPathParam.Err(err)
	}
	ident, err := ns.Child(name)
	if err != nil {
		return types.NameIdentifier{}, ErrInvalidRequestBody.Msgf("invalid name %q", name).Err(err)
	}
	return ident, nil
}

func queryBool(r *http.Request, name string) (bool, apperrors.Error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, ErrInvalidRequestBody.Msgf("query parameter %s must be a boolean", name)
	}
	return b, nil
}

const maskedValue = "******"

var secretKeyParts = []string{"password", "secret"}

// maskProperties hides credential values before a catalog is returned.
func maskProperties(props map[string]string) map[string]string {
	out := make(map[string]string, len(props))
	for k, v := range props {
		lk := strings.ToLower(k)
		for _, part := range secretKeyParts {
			if strings.Contains(lk, part) {
				v = maskedValue
				break
			}
		}
		out[k] = v
	}
	return out
}

// unmaskProperties restores masked values sent back by a client from the
// stored properties.
func unmaskProperties(props, stored map[string]string) map[string]string {
	out := make(map[string]string, len(props))
	for k, v := range props {
		if old, ok := stored[k]; ok && v == maskedValue {
			v = old
		}
		out[k] = v
	}
	return out
}

func maskedCatalog(c *meta.Catalog) *meta.Catalog {
	cp := *c
	cp.Properties = maskProperties(c.Properties)
	return &cp
}

func rspOK(body any) *httpx.Response {
	return &httpx.Response{StatusCode: http.StatusOK, Response: body}
}

func rspCreated(location string, body any) *httpx.Response {
	return &httpx.Response{StatusCode: http.StatusCreated, Location: location, Response: body}
}

func rspList(idents []types.NameIdentifier) *httpx.Response {
	if idents == nil {
		idents = []types.NameIdentifier{}
	}
	return rspOK(&ListRsp{Identifiers: idents})
}
