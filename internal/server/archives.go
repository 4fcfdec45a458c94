package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/flyroom/pkg/db/pagination"
)

func (s *Server) ListArchives(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.archiveSvc.List(c.Request.Context(), tenantIDFrom(c), page)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) CreateArchive(c *gin.Context) {
	entry, err := s.archiveSvc.Archive(c.Request.Context(), tenantIDFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (s *Server) DownloadArchive(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	dl, err := s.archiveSvc.Download(c.Request.Context(), tenantIDFrom(c), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	attachment(c, dl.Filename, dl.Data)
}
