package event

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const publicListPrefix = "ewm:events:public:"

func cacheKeyEventDetails(id int64) string {
	return fmt.Sprintf("ewm:event:%d", id)
}

// cacheKeyPublicList hashes the normalized filter. Views are not part of the cached value.
func cacheKeyPublicList(f PublicFilter, size int) string {
	cats := make([]string, 0, len(f.Categories))
	for _, c := range f.Categories {
		cats = append(cats, strconv.FormatInt(c, 10))
	}
	paid := ""
	if f.Paid != nil {
		paid = strconv.FormatBool(*f.Paid)
	}

	raw := fmt.Sprintf("text=%s|cats=%s|paid=%s|from=%s|to=%s|avail=%t|size=%d",
		strings.ToLower(f.Text), strings.Join(cats, ","), paid,
		fmtTime(f.RangeStart), fmtTime(f.RangeEnd), f.OnlyAvailable, size)

	hash := sha256.Sum256([]byte(raw))
	return publicListPrefix + hex.EncodeToString(hash[:])
}

func fmtTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
