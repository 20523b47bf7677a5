package mw

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"hotel-reservation-backend/internal/model"
	"hotel-reservation-backend/internal/parse"
	"hotel-reservation-backend/internal/store"
)

// ClientHeader carries the caller's client id.
const ClientHeader = "X-Client-ID"

const clientKey = "client"

// ClientLookup resolves a client id.
type ClientLookup interface {
	GetClient(ctx context.Context, id int64) (*model.Client, error)
}

// ClientIdentity resolves the X-Client-ID header into a client and stores it
// on the context. Requests without a known client are rejected.
func ClientIdentity(lookup ClientLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parse.ID(c.GetHeader(ClientHeader))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid " + ClientHeader + " header"})
			return
		}

		client, err := lookup.GetClient(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown client"})
				return
			}
			log.Printf("[api] client lookup failed id=%d: %v", id, err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.Set(clientKey, client)
		c.Next()
	}
}

// CurrentClient returns the client resolved by ClientIdentity, or nil.
func CurrentClient(c *gin.Context) *model.Client {
	v, ok := c.Get(clientKey)
	if !ok {
		return nil
	}
	client, _ := v.(*model.Client)
	return client
}
