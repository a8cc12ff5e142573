package greenery

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

var (
	ErrMalformedRequest = errors.New("malformed request body")
	ErrMissingField     = errors.New("missing required field")
)

// Pointer fields distinguish an absent (or null) field from an empty string.
type readRequest struct {
	GreeneryID *string `json:"greenery_id"`
}

type createRequest struct {
	GreeneryID *string `json:"greenery_id"`
	Name       *string `json:"name"`
	Phone      *string `json:"phone"`
	Email      *string `json:"email"`
	Address    *string `json:"address"`
}

// DecodeGreeneryID reads a {"greenery_id": ...} document from r.
// Unknown fields are ignored.
func DecodeGreeneryID(r io.Reader) (string, error) {
	var req readRequest
	if err := decodeStrict(r, &req); err != nil {
		return "", err
	}
	if req.GreeneryID == nil {
		return "", errors.Wrap(ErrMissingField, "greenery_id")
	}
	return *req.GreeneryID, nil
}

// DecodeGeneralInfo reads a record document from r. All five fields must be
// present; unknown fields are ignored.
func DecodeGeneralInfo(r io.Reader) (GeneralInfo, error) {
	var req createRequest
	if err := decodeStrict(r, &req); err != nil {
		return GeneralInfo{}, err
	}

	fields := []struct {
		name  string
		value *string
	}{
		{"greenery_id", req.GreeneryID},
		{"name", req.Name},
		{"phone", req.Phone},
		{"email", req.Email},
		{"address", req.Address},
	}
	for _, f := range fields {
		if f.value == nil {
			return GeneralInfo{}, errors.Wrap(ErrMissingField, f.name)
		}
	}
	return GeneralInfo{
		GreeneryID: *req.GreeneryID,
		Name:       *req.Name,
		Phone:      *req.Phone,
		Email:      *req.Email,
		Address:    *req.Address,
	}, nil
}

// decodeStrict decodes exactly one JSON value; anything but whitespace after
// it is malformed. Reader errors stay reachable through errors.As.
func decodeStrict(r io.Reader, dst any) error {
	dec := json.NewDecoder(r)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedRequest, err)
	}
	var extra json.RawMessage
	switch err := dec.Decode(&extra); {
	case err == io.EOF:
		return nil
	case err != nil:
		return fmt.Errorf("%w: trailing data: %w", ErrMalformedRequest, err)
	default:
		return fmt.Errorf("%w: trailing data after JSON value", ErrMalformedRequest)
	}
}
