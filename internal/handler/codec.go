package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/kart-backoffice/internal/domain/apperr"
	"github.com/xenking/kart-backoffice/internal/domain/auth"
	"github.com/xenking/kart-backoffice/pkg/httpmiddleware"
)

const maxBodyBytes = 1 << 20

// decodeObject reads the request body as a JSON object and calls field for
// every key. An empty body is treated as an empty object.
func decodeObject(r *http.Request, field func(d *jx.Decoder, key string) error) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return apperr.InvalidValue("read body: %v", err)
	}
	if len(data) > maxBodyBytes {
		return apperr.InvalidValue("body exceeds %d bytes", maxBodyBytes)
	}
	if len(data) == 0 {
		return nil
	}
	if err := jx.DecodeBytes(data).Obj(field); err != nil {
		if apperr.Kind(err) != apperr.KindInternal {
			return err
		}
		return apperr.InvalidValue("malformed body: %v", err)
	}
	return nil
}

// decodeDecimal accepts a JSON number or a numeric string.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	var raw string
	switch d.Next() {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, err
		}
		raw = n.String()
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		raw = s
	default:
		return decimal.Decimal{}, apperr.InvalidValue("expected a number")
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, apperr.InvalidValue("malformed number %q", raw)
	}
	return v, nil
}

// decodeOptionalString returns "" for a JSON null.
func decodeOptionalString(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

func decodeDate(d *jx.Decoder) (*time.Time, error) {
	s, err := decodeOptionalString(d)
	if err != nil || s == "" {
		return nil, err
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, apperr.InvalidValue("malformed date %q", s)
}

func encodeMoney(e *jx.Encoder, v decimal.Decimal) {
	e.Raw([]byte(v.StringFixed(2)))
}

func encodeDecimal(e *jx.Encoder, v decimal.Decimal) {
	e.Raw([]byte(v.String()))
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339))
}

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// statusOf maps an error kind to its HTTP status code.
func statusOf(err error) int {
	switch apperr.Kind(err) {
	case apperr.KindInvalidValue, apperr.KindDocumentInvalid:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInsufficientStock, apperr.KindStockSafety:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as an API error. Server-side failures are logged
// and their message is not exposed.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, auth.ErrUnauthorized) {
		httpmiddleware.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid api key")
		return
	}

	code := statusOf(err)
	kind := apperr.Kind(err)
	if code >= http.StatusInternalServerError {
		zctx.From(ctx).Error("Request failed", zap.String("kind", kind), zap.Error(err))
		httpmiddleware.WriteError(w, code, kind, "internal error")
		return
	}
	httpmiddleware.WriteError(w, code, kind, err.Error())
}
