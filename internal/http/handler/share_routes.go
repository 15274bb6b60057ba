package handler

import (
	"net/http"

	"legacynote/internal/contract"
	"legacynote/internal/domain/entity"
	"legacynote/internal/domain/policy"
	"legacynote/internal/utils"
	"legacynote/internal/utils/apierror"

	"github.com/labstack/echo/v4"
)

type ShareService interface {
	ShareNote(actor *entity.User, noteID int64, regenerate bool) (*contract.ShareNoteResponse, apierror.ErrorResponse)
	AccessSharedNote(noteID int64, req policy.AccessRequest) (*contract.NoteResponse, apierror.ErrorResponse)
}

type DefaultShareRoute struct {
	ShareService ShareService
}

func NewShareDefault(shareService ShareService) *DefaultShareRoute {
	return &DefaultShareRoute{ShareService: shareService}
}

func (s *DefaultShareRoute) ShareNote(c echo.Context) error {
	user, cerr := utils.GetUserFromContext(c)
	if cerr != nil {
		return c.JSON(cerr.Code(), cerr)
	}

	id, err := parseNoteID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, apierror.NewInvalidParamTypeError("id", "int64"))
	}

	var req contract.ShareNoteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	resp, apierr := s.ShareService.ShareNote(user, id, req.Regenerate)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, resp)
}

// GetSharedNote is the unauthenticated capability-URL read path. A
// bearer token, when present and valid, additionally unlocks owner and
// recipient early access.
func (s *DefaultShareRoute) GetSharedNote(c echo.Context) error {
	id, err := parseNoteID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, apierror.NewInvalidParamTypeError("id", "int64"))
	}

	req := policy.AccessRequest{
		AccessKey: c.Param("key"),
	}
	if tokenData, terr := utils.ParseTokenDataCtx(c); terr == nil {
		req.RequesterID = tokenData.Sub
		req.RequesterEmail = tokenData.Email
	}

	note, apierr := s.ShareService.AccessSharedNote(id, req)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, note)
}
