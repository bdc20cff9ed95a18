package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestGenerateETag(t *testing.T) {
	id := primitive.NewObjectID()
	now := time.Now()

	a := GenerateETag(id, now)
	assert.Equal(t, a, GenerateETag(id, now))
	assert.NotEqual(t, a, GenerateETag(id, now.Add(time.Millisecond)))
	assert.Regexp(t, `^W/"[0-9a-f]{40}"$`, a)
}

func TestGenerateCollectionETag(t *testing.T) {
	now := time.Now()
	base := GenerateCollectionETag(now, 3, 1)

	assert.Equal(t, base, GenerateCollectionETag(now, 3, 1))
	assert.NotEqual(t, base, GenerateCollectionETag(now, 2, 1), "deletion changes the tag")
	assert.NotEqual(t, base, GenerateCollectionETag(now, 3, 0), "read flag changes the tag")
	assert.NotEqual(t, GenerateCollectionETag(now, 31), GenerateCollectionETag(now, 3, 1))
}
