package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rapidlab/labbooking/internal/domain"
	"github.com/rapidlab/labbooking/internal/service/catalog"
)

type CatalogHandler struct {
	service catalog.CatalogUseCase
}

func NewCatalogHandler(service catalog.CatalogUseCase) *CatalogHandler {
	return &CatalogHandler{service: service}
}

func (h *CatalogHandler) Register(router *gin.RouterGroup) {
	router.GET("/labs", h.listLabs)
	router.GET("/labs/:name", h.getLab)
	router.GET("/tests", h.listTests)
	router.GET("/tests/:id", h.getTest)
}

func (h *CatalogHandler) listLabs(c *gin.Context) {
	labs, err := h.service.ListLabs(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, labs)
}

func (h *CatalogHandler) getLab(c *gin.Context) {
	lab, err := h.service.GetLabByName(c.Request.Context(), c.Param("name"))
	if err != nil {
		if errors.Is(err, domain.ErrLabNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, lab)
}

func (h *CatalogHandler) listTests(c *gin.Context) {
	tests, err := h.service.ListTests(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, tests)
}

func (h *CatalogHandler) getTest(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	test, err := h.service.GetTestByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrTestNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, test)
}
