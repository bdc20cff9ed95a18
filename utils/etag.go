package utils

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GenerateETag derives a weak validator from a record id and its last update time.
func GenerateETag(id primitive.ObjectID, updatedAt time.Time) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s:%d", id.Hex(), updatedAt.UnixNano())))
	return `W/"` + hex.EncodeToString(sum[:]) + `"`
}

// GenerateCollectionETag covers a polled collection: the newest update plus
// counters such as the item count, so deletions and read flags also change the tag.
func GenerateCollectionETag(latest time.Time, counts ...int) string {
	key := fmt.Sprintf("%d", latest.UnixNano())
	for _, n := range counts {
		key += fmt.Sprintf(":%d", n)
	}
	sum := sha1.Sum([]byte(key))
	return `W/"` + hex.EncodeToString(sum[:]) + `"`
}
