package user

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/easystock/internal/api"
	"github.com/FACorreiaa/easystock/internal/api/auth"
	"github.com/FACorreiaa/easystock/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

// avatarFormField is the multipart field carrying the image.
const avatarFormField = "avatar"

type Handler interface {
	GetUserProfile(w http.ResponseWriter, r *http.Request)
	UpdateUserProfile(w http.ResponseWriter, r *http.Request)
	UploadAvatar(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	userService UserService
	logger      *slog.Logger
}

// NewHandlerImpl creates a new user HandlerImpl instance.
func NewHandlerImpl(userService UserService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		userService: userService,
		logger:      logger,
	}
}

func startSpan(r *http.Request, name, route string) (*http.Request, trace.Span) {
	ctx, span := otel.Tracer("UserHandler").Start(r.Context(), name, trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String(route),
	))
	return r.WithContext(ctx), span
}

func (h *HandlerImpl) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, types.ErrNotFound):
		api.ErrorResponse(w, r, http.StatusNotFound, "User not found")
	case errors.Is(err, ErrAvatarStorageDisabled):
		api.ErrorResponse(w, r, http.StatusServiceUnavailable, "Avatar uploads are not available")
	default:
		api.HandleError(w, r, h.logger, err)
	}
}

// GetUserProfile godoc
// @Summary      Get User Profile
// @Description  Retrieves the authenticated user's profile information.
// @Tags         User
// @Produce      json
// @Success      200 {object} types.User "User Profile"
// @Failure      401 {object} api.ErrorBody "Unauthorized"
// @Failure      404 {object} api.ErrorBody "User Not Found"
// @Failure      500 {object} api.ErrorBody "Internal Server Error"
// @Router       /users/me [get]
func (h *HandlerImpl) GetUserProfile(w http.ResponseWriter, r *http.Request) {
	r, span := startSpan(r, "GetUserProfile", "/api/users/me")
	defer span.End()

	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		span.SetStatus(codes.Error, "unauthenticated")
		api.HandleError(w, r, h.logger, types.ErrUnauthenticated)
		return
	}

	profile, err := h.userService.GetUserProfile(r.Context(), userID)
	if err != nil {
		span.SetStatus(codes.Error, "lookup failed")
		h.writeError(w, r, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	api.WriteJSONResponse(w, r, http.StatusOK, profile)
}

// UpdateUserProfile godoc
// @Summary      Update User Profile
// @Description  Updates the authenticated user's name and shop name. Omitted fields are left unchanged.
// @Tags         User
// @Accept       json
// @Produce      json
// @Param        profile body types.UpdateProfileParams true "Profile Update Parameters"
// @Success      200 {object} types.User "Updated Profile"
// @Failure      400 {object} api.ErrorBody "Invalid Input"
// @Failure      401 {object} api.ErrorBody "Unauthorized"
// @Failure      500 {object} api.ErrorBody "Internal Server Error"
// @Router       /users/me [patch]
func (h *HandlerImpl) UpdateUserProfile(w http.ResponseWriter, r *http.Request) {
	r, span := startSpan(r, "UpdateUserProfile", "/api/users/me")
	defer span.End()

	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		span.SetStatus(codes.Error, "unauthenticated")
		api.HandleError(w, r, h.logger, types.ErrUnauthenticated)
		return
	}

	var params types.UpdateProfileParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode request", slog.String("method", "UpdateUserProfile"), slog.Any("error", err))
		span.SetStatus(codes.Error, "bad request body")
		api.CodedErrorResponse(w, r, http.StatusBadRequest, api.CodeValidation, err.Error())
		return
	}

	profile, err := h.userService.UpdateUserProfile(r.Context(), userID, params)
	if err != nil {
		span.SetStatus(codes.Error, "update failed")
		h.writeError(w, r, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	api.WriteJSONResponse(w, r, http.StatusOK, profile)
}

// UploadAvatar godoc
// @Summary      Upload Avatar
// @Description  Replaces the authenticated user's profile image. The content type is sniffed from the file.
// @Tags         User
// @Accept       multipart/form-data
// @Produce      json
// @Param        avatar formData file true "PNG, JPEG, WebP or GIF image up to 2 MB"
// @Success      200 {object} types.Avatar
// @Failure      400 {object} api.ErrorBody "Invalid Image"
// @Failure      401 {object} api.ErrorBody "Unauthorized"
// @Failure      503 {object} api.ErrorBody "Storage Not Configured"
// @Router       /users/me/avatar [put]
func (h *HandlerImpl) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	r, span := startSpan(r, "UploadAvatar", "/api/users/me/avatar")
	defer span.End()

	l := h.logger.With(slog.String("method", "UploadAvatar"))

	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		span.SetStatus(codes.Error, "unauthenticated")
		api.HandleError(w, r, h.logger, types.ErrUnauthenticated)
		return
	}

	// Leave room for the multipart envelope around the file.
	r.Body = http.MaxBytesReader(w, r.Body, MaxAvatarBytes+64<<10)
	file, header, err := r.FormFile(avatarFormField)
	if err != nil {
		l.WarnContext(r.Context(), "Invalid avatar upload", slog.Any("error", err))
		span.SetStatus(codes.Error, "bad multipart body")
		api.CodedErrorResponse(w, r, http.StatusBadRequest, api.CodeValidation, "An image file is required in the \"avatar\" field and must be at most 2 MB.")
		return
	}
	defer file.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		span.SetStatus(codes.Error, "read failed")
		api.HandleError(w, r, h.logger, types.NewTransientError("read avatar", err))
		return
	}
	head = head[:n]
	contentType := http.DetectContentType(head)

	avatar, err := h.userService.UploadAvatar(r.Context(), userID, io.MultiReader(bytes.NewReader(head), file), header.Size, contentType)
	if err != nil {
		span.SetStatus(codes.Error, "upload failed")
		h.writeError(w, r, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	api.WriteJSONResponse(w, r, http.StatusOK, avatar)
}
