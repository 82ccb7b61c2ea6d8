package record

import "github.com/gin-gonic/gin"

// RecordModule implements the app.Module interface for the record domain.
type RecordModule struct {
	handler *RecordHandler
}

// NewModule creates a new RecordModule with the given handler.
// Panics if h is nil.
func NewModule(h *RecordHandler) *RecordModule {
	if h == nil {
		panic("record.NewModule: handler must not be nil")
	}
	return &RecordModule{handler: h}
}

// RegisterRoutes registers the record API routes. Every request gets its own
// batching loader.
func (m *RecordModule) RegisterRoutes(api *gin.RouterGroup) {
	records := api.Group("/records", LoaderMiddleware(m.handler.gw.store))
	records.GET("", m.handler.List)
	records.GET("/paginated", m.handler.ListPaginated)
	records.GET("/batch", m.handler.Batch)
	records.GET("/:id", m.handler.Get)
	records.POST("", m.handler.Create)
	records.PATCH("/:id", m.handler.Update)
	records.DELETE("/:id", m.handler.Delete)
}
