// Package greenery holds the general-info record model and the service that
// reads and writes records through an object store.
package greenery

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

const (
	keyPrefix   = "general/"
	keySuffix   = ".json"
	maxIDLength = 128
)

var (
	ErrInvalidID = errors.New("invalid greenery_id")
	ErrNotFound  = errors.New("record not found")
)

type GreeneryID struct {
	GreeneryID string `json:"greenery_id"`
}

// GeneralInfo is persisted verbatim as JSON. Field order is the serialized order.
type GeneralInfo struct {
	GreeneryID string `json:"greenery_id"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	Address    string `json:"address"`
}

// ValidateID accepts ids made of ASCII letters, digits, '.', '_' and '-'.
// Path separators and the "." and ".." segments are rejected.
func ValidateID(id string) error {
	if id == "" {
		return errors.Wrap(ErrInvalidID, "must not be empty")
	}
	if len(id) > maxIDLength {
		return errors.Wrapf(ErrInvalidID, "must be at most %d bytes", maxIDLength)
	}
	if id == "." || id == ".." {
		return errors.Wrapf(ErrInvalidID, "%q is reserved", id)
	}
	for i := 0; i < len(id); i++ {
		if !allowedIDByte(id[i]) {
			return errors.Wrapf(ErrInvalidID, "character %q at offset %d is not allowed", id[i], i)
		}
	}
	return nil
}

func allowedIDByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	case b == '.' || b == '_' || b == '-':
		return true
	}
	return false
}

// ObjectKey maps an id to its storage key, general/<id>.json.
func ObjectKey(id string) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", err
	}
	var b strings.Builder
	b.Grow(len(keyPrefix) + len(id) + len(keySuffix))
	b.WriteString(keyPrefix)
	b.WriteString(id)
	b.WriteString(keySuffix)
	return b.String(), nil
}

// Marshal returns the canonical JSON text stored for the record.
func (g GeneralInfo) Marshal() ([]byte, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return nil, errors.Wrap(err, "marshal general info")
	}
	return data, nil
}
