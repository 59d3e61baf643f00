package http

import (
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/jazzyauth/internal/common"
	"github.com/dmitrijs2005/jazzyauth/internal/server/models"
	"github.com/gin-gonic/gin"
)

func (h *Handler) AddProduct(c *gin.Context) {
	var p models.Product
	if err := c.ShouldBindJSON(&p); err != nil {
		h.badRequest(c, err)
		return
	}
	p.ID = 0
	created, err := h.products.Create(c.Request.Context(), &p)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondCreated(c, "Product created", created)
}

func (h *Handler) UpdateProduct(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	var patch models.ProductPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		h.badRequest(c, err)
		return
	}
	updated, err := h.products.Update(c.Request.Context(), id, &patch)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, "Product updated", updated)
}

func (h *Handler) DeleteProduct(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.products.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, "Product deleted", nil)
}

func (h *Handler) ListProducts(c *gin.Context) {
	list, err := h.products.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, "Products retrieved", list)
}

func (h *Handler) GetProduct(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	p, err := h.products.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, "Product retrieved", p)
}

func (h *Handler) Categories(c *gin.Context) {
	list, err := h.products.Categories(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, "Categories retrieved", list)
}

func (h *Handler) ProductsByCategory(c *gin.Context) {
	list, err := h.products.ByCategory(c.Request.Context(), c.Param("category"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, "Products retrieved", list)
}

func (h *Handler) LimitProducts(c *gin.Context) {
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil {
		h.respondError(c, fmt.Errorf("invalid limit %q: %w", c.Param("n"), common.ErrorValidation))
		return
	}
	list, err := h.products.Limit(c.Request.Context(), n)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, "Products retrieved", list)
}

func (h *Handler) SortProducts(c *gin.Context) {
	list, err := h.products.Sorted(c.Request.Context(), c.DefaultQuery("sort_by", "id"), c.Query("order"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, "Products retrieved", list)
}
