package record

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/recordsvc/internal/domain"
	"github.com/simp-lee/recordsvc/internal/pkg"
)

// RecordHandler handles REST API requests for the record resource.
type RecordHandler struct {
	gw    *Gateway
	pages pkg.PageDefaults
}

// NewRecordHandler creates a RecordHandler over gw. pages bounds the limit
// accepted from query strings.
func NewRecordHandler(gw *Gateway, pages pkg.PageDefaults) *RecordHandler {
	return &RecordHandler{gw: gw, pages: pages}
}

// Get handles GET /api/v1/records/:id.
func (h *RecordHandler) Get(c *gin.Context) {
	id := c.Param("id")

	rec, err := h.gw.ReadByID(c.Request.Context(), id)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	if rec == nil {
		pkg.Error(c, domain.NotFoundError("record", id))
		return
	}

	pkg.Success(c, rec)
}

// Batch handles GET /api/v1/records/batch?ids=a,b,c. The response holds one
// entry per requested id, null where the record does not exist.
func (h *RecordHandler) Batch(c *gin.Context) {
	var ids []string
	for _, v := range c.QueryArray("ids") {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	if len(ids) == 0 {
		pkg.Error(c, domain.UsageError("ids is required"))
		return
	}
	if limit := h.pages.MaxLimit; limit > 0 && len(ids) > limit {
		pkg.Error(c, domain.UsageError("too many ids: %d exceeds the maximum of %d", len(ids), limit))
		return
	}

	records, err := h.gw.ReadManyByID(c.Request.Context(), ids)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, records)
}

// List handles GET /api/v1/records and answers with a connection.
func (h *RecordHandler) List(c *gin.Context) {
	p, err := pkg.ParseListParams(c, h.pages)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	conn, err := h.gw.List(c.Request.Context(), domain.PaginationInput{
		Limit:  p.Limit,
		Offset: p.Offset,
		Cursor: p.Cursor,
	}, p.Sort, p.Filter)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, conn)
}

// ListPaginated handles GET /api/v1/records/paginated.
func (h *RecordHandler) ListPaginated(c *gin.Context) {
	p, err := pkg.ParseListParams(c, h.pages)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	result, err := h.gw.ListPaginated(c.Request.Context(), p.Limit, p.Offset, p.Sort, p.Filter)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, result)
}

// Create handles POST /api/v1/records.
func (h *RecordHandler) Create(c *gin.Context) {
	var req CreateRecordRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	id, err := h.gw.Create(c.Request.Context(), domain.CreateRecordInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Created(c, IDResponse{ID: id})
}

// Update handles PATCH /api/v1/records/:id.
func (h *RecordHandler) Update(c *gin.Context) {
	var req UpdateRecordRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	id, err := h.gw.Update(c.Request.Context(), c.Param("id"), domain.UpdateRecordInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, IDResponse{ID: id})
}

// Delete handles DELETE /api/v1/records/:id.
func (h *RecordHandler) Delete(c *gin.Context) {
	if err := h.gw.Remove(c.Request.Context(), c.Param("id")); err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.NoContent(c)
}
