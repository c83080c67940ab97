package firestore

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	domain "github.com/vessia-direct/api/internal/domain"
)

// compositeID joins entity identifiers into a document key. Using the pair as the key
// is what lets Create enforce at-most-one-row-per-pair without a separate index.
func compositeID(parts ...string) string {
	trimmed := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed = append(trimmed, strings.TrimSpace(part))
	}
	return strings.Join(trimmed, "_")
}

// encodeListToken packs the cursor position (sort timestamp + document ID) into an
// opaque page token.
func encodeListToken(ts time.Time, id string) string {
	raw := fmt.Sprintf("%d|%s", ts.UTC().UnixNano(), id)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// decodeListToken reverses encodeListToken.
func decodeListToken(token string) (time.Time, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return time.Time{}, "", err
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, "", errors.New("malformed page token")
	}
	nanos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}, "", err
	}
	return time.Unix(0, nanos).UTC(), parts[1], nil
}

// pageWindow derives the fetch limit used to detect whether another page exists.
func pageWindow(pager domain.Pagination) (limit, fetchLimit int) {
	limit = pager.PageSize
	if limit < 0 {
		limit = 0
	}
	fetchLimit = limit
	if limit > 0 {
		fetchLimit = limit + 1
	}
	return limit, fetchLimit
}

type variantDocument struct {
	Name  string `firestore:"name"`
	SKU   string `firestore:"sku"`
	Color string `firestore:"color,omitempty"`
}

func encodeVariant(variant *domain.ProductVariant) *variantDocument {
	if variant == nil {
		return nil
	}
	return &variantDocument{
		Name:  variant.Name,
		SKU:   variant.SKU,
		Color: variant.Color,
	}
}

func decodeVariant(doc *variantDocument) *domain.ProductVariant {
	if doc == nil {
		return nil
	}
	return &domain.ProductVariant{
		Name:  doc.Name,
		SKU:   doc.SKU,
		Color: doc.Color,
	}
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}

func optionalTime(value time.Time) *time.Time {
	if value.IsZero() {
		return nil
	}
	utc := value.UTC()
	return &utc
}
