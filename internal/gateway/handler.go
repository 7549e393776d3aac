package gateway

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Mikkkkkkka/cat-accounts-api/internal/middleware"
	"github.com/Mikkkkkkka/cat-accounts-api/internal/models"
	"github.com/Mikkkkkkka/cat-accounts-api/internal/rpc"
	"github.com/Mikkkkkkka/cat-accounts-api/internal/utils"
)

// Handler routes HTTP requests onto broker calls. It owns no domain state;
// authorization decisions that depend on cat ownership are themselves RPC
// calls to the cat service.
type Handler struct {
	composer *Composer
	cats     *CatClient
	owners   *OwnerClient
	users    UserStore
}

func NewHandler(composer *Composer, cats *CatClient, owners *OwnerClient, users UserStore) *Handler {
	return &Handler{composer: composer, cats: cats, owners: owners, users: users}
}

// RegisterRoutes mounts all routes. The auth middleware is injected so
// tests can substitute a fake identity.
func RegisterRoutes(router *gin.Engine, h *Handler, auth gin.HandlerFunc) {
	api := router.Group("/api")

	cats := api.Group("/cats")
	{
		cats.GET("", h.ListCats)
		cats.POST("", h.CreateCat)
		cats.GET("/:id", auth, h.GetCat)
		cats.PUT("/:id", auth, h.UpdateCat)
		cats.DELETE("/:id", auth, h.DeleteCat)
		cats.POST("/friendships", auth, h.BefriendCats)
		cats.DELETE("/friendships", auth, h.UnfriendCats)
	}

	owners := api.Group("/owners")
	{
		owners.GET("", h.ListOwners)
		owners.POST("", h.CreateOwner)
		owners.GET("/:id", auth, h.GetOwner)
		owners.PUT("/:id", auth, h.UpdateOwner)
		owners.DELETE("/:id", auth, h.DeleteOwner)
		owners.POST("/ownerships", auth, h.AddCatToOwner)
		owners.DELETE("/ownerships", auth, h.RemoveCatFromOwner)
	}

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "api-gateway"})
	})
}

// respondError maps RPC failures onto external status codes: remote errors
// keep their original status and message, a missing reply becomes 503.
func respondError(c *gin.Context, err error) {
	var (
		remote      *rpc.RemoteError
		unavailable *rpc.ServiceUnavailableError
		invalid     *rpc.InvalidPayloadError
		notFound    *rpc.NotFoundError
	)
	switch {
	case errors.As(err, &remote):
		middleware.RespondWithError(c, remote.Status, remote.Message)
	case errors.As(err, &unavailable):
		middleware.RespondWithError(c, http.StatusServiceUnavailable, unavailable.Error())
	case errors.As(err, &invalid):
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid payload")
	case errors.As(err, &notFound):
		middleware.RespondWithError(c, http.StatusNotFound, notFound.Message)
	default:
		middleware.RespondWithError(c, http.StatusInternalServerError, err.Error())
	}
}

// ---------- request bodies ----------

// CatRequest carries id/ownerId/friends through to the service so the
// improper-update checks run server-side on the stored entity.
type CatRequest struct {
	ID       int64           `json:"id,omitempty"`
	Name     string          `json:"name" validate:"required"`
	Birthday models.Date     `json:"birthday"`
	Breed    string          `json:"breed"`
	Color    models.CatColor `json:"color" validate:"required,oneof=BLACK WHITE GINGER GRAY MIXED"`
	OwnerID  *int64          `json:"ownerId"`
	Friends  []int64         `json:"friends"`
}

func (r CatRequest) toModel() models.Cat {
	return models.Cat{
		ID:       r.ID,
		Name:     r.Name,
		Birthday: r.Birthday,
		Breed:    r.Breed,
		Color:    r.Color,
		OwnerID:  r.OwnerID,
		Friends:  r.Friends,
	}
}

type OwnerRequest struct {
	ID       int64       `json:"id,omitempty"`
	Name     string      `json:"name" validate:"required"`
	Birthday models.Date `json:"birthday"`
}

func (r OwnerRequest) toModel() models.Owner {
	return models.Owner{ID: r.ID, Name: r.Name, Birthday: r.Birthday}
}

type RegisterRequest struct {
	Username string          `json:"username" validate:"required,min=3"`
	Password string          `json:"password" validate:"required,min=8"`
	Role     models.UserRole `json:"role" validate:"required,oneof=ADMIN USER"`
	OwnerID  *int64          `json:"ownerId"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ---------- helpers ----------

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid id")
		return 0, false
	}
	return id, true
}

func queryID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Query(name), 10, 64)
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return id, true
}

func pageParams(c *gin.Context) (page, size int, ok bool) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "0"))
	if err != nil || page < 0 {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid page")
		return 0, 0, false
	}
	size, err = strconv.Atoi(c.DefaultQuery("size", "10"))
	if err != nil || size < 0 {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid size")
		return 0, 0, false
	}
	return page, size, true
}

func queryDate(c *gin.Context, name string) (*models.Date, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	date, err := models.ParseDate(raw)
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid "+name)
		return nil, false
	}
	return &date, true
}

// requireCatAccess enforces the cat-route policy: ADMIN passes, a USER must
// own the cat. Replies and returns false on denial.
func (h *Handler) requireCatAccess(c *gin.Context, catIDs ...int64) bool {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		middleware.RespondWithError(c, http.StatusUnauthorized, "Authentication required")
		return false
	}
	if claims.Role == models.RoleAdmin {
		return true
	}
	if claims.OwnerID == nil {
		middleware.RespondWithError(c, http.StatusForbidden, "User is not linked to an owner")
		return false
	}
	for _, catID := range catIDs {
		owns, err := h.cats.OwnerOwnsCat(c.Request.Context(), *claims.OwnerID, catID)
		if err != nil {
			respondError(c, err)
			return false
		}
		if owns {
			return true
		}
	}
	middleware.RespondWithError(c, http.StatusForbidden, "You can only manage your own cats")
	return false
}

// requireOwnerAccess enforces the owner-route policy: ADMIN passes, a USER
// may only act on its own owner id.
func requireOwnerAccess(c *gin.Context, ownerID int64) bool {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		middleware.RespondWithError(c, http.StatusUnauthorized, "Authentication required")
		return false
	}
	if claims.Role == models.RoleAdmin {
		return true
	}
	if claims.OwnerID == nil || *claims.OwnerID != ownerID {
		middleware.RespondWithError(c, http.StatusForbidden, "You can only manage your own owner profile")
		return false
	}
	return true
}

// ---------- cat routes ----------

func (h *Handler) ListCats(c *gin.Context) {
	page, size, ok := pageParams(c)
	if !ok {
		return
	}

	var filter models.CatFilter
	if raw := c.Query("ownerId"); raw != "" {
		ownerID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			middleware.RespondWithError(c, http.StatusBadRequest, "Invalid ownerId")
			return
		}
		filter.OwnerID = &ownerID
	}
	for _, raw := range c.QueryArray("colors") {
		color := models.CatColor(raw)
		if !color.Valid() {
			middleware.RespondWithError(c, http.StatusBadRequest, "Invalid color: "+raw)
			return
		}
		filter.Colors = append(filter.Colors, color)
	}
	var ok2 bool
	if filter.BirthdateAfter, ok2 = queryDate(c, "birthdayAfter"); !ok2 {
		return
	}
	if filter.BirthdateBefore, ok2 = queryDate(c, "birthdayBefore"); !ok2 {
		return
	}

	cats, err := h.cats.List(c.Request.Context(), filter, page, size)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cats)
}

func (h *Handler) CreateCat(c *gin.Context) {
	var req CatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	cat, err := h.cats.Create(c.Request.Context(), req.toModel())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (h *Handler) GetCat(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if !h.requireCatAccess(c, id) {
		return
	}
	cat, err := h.cats.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (h *Handler) UpdateCat(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if !h.requireCatAccess(c, id) {
		return
	}
	var req CatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	cat, err := h.cats.Update(c.Request.Context(), id, req.toModel())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (h *Handler) DeleteCat(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if !h.requireCatAccess(c, id) {
		return
	}
	ack, err := h.cats.Delete(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": ack})
}

func (h *Handler) BefriendCats(c *gin.Context) {
	cat1ID, ok := queryID(c, "cat1Id")
	if !ok {
		return
	}
	cat2ID, ok := queryID(c, "cat2Id")
	if !ok {
		return
	}
	// Owning either side of the friendship is enough.
	if !h.requireCatAccess(c, cat1ID, cat2ID) {
		return
	}
	ack, err := h.cats.Befriend(c.Request.Context(), cat1ID, cat2ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": ack})
}

func (h *Handler) UnfriendCats(c *gin.Context) {
	cat1ID, ok := queryID(c, "cat1Id")
	if !ok {
		return
	}
	cat2ID, ok := queryID(c, "cat2Id")
	if !ok {
		return
	}
	if !h.requireCatAccess(c, cat1ID, cat2ID) {
		return
	}
	ack, err := h.cats.Unfriend(c.Request.Context(), cat1ID, cat2ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": ack})
}

// ---------- owner routes ----------

func (h *Handler) ListOwners(c *gin.Context) {
	page, size, ok := pageParams(c)
	if !ok {
		return
	}
	var filter models.OwnerFilter
	if filter.BirthdayAfter, ok = queryDate(c, "birthdayAfter"); !ok {
		return
	}
	if filter.BirthdayBefore, ok = queryDate(c, "birthdayBefore"); !ok {
		return
	}

	owners, err := h.composer.ListOwners(c.Request.Context(), filter, page, size)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, owners)
}

func (h *Handler) CreateOwner(c *gin.Context) {
	var req OwnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	owner, err := h.owners.Create(c.Request.Context(), req.toModel())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, owner)
}

func (h *Handler) GetOwner(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if !requireOwnerAccess(c, id) {
		return
	}
	owner, err := h.composer.GetOwner(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, owner)
}

func (h *Handler) UpdateOwner(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if !requireOwnerAccess(c, id) {
		return
	}
	var req OwnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	owner, err := h.composer.UpdateOwner(c.Request.Context(), id, req.toModel())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, owner)
}

func (h *Handler) DeleteOwner(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if !requireOwnerAccess(c, id) {
		return
	}
	if err := h.owners.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Deleted owner successfully"})
}

func (h *Handler) AddCatToOwner(c *gin.Context) {
	ownerID, ok := queryID(c, "ownerId")
	if !ok {
		return
	}
	catID, ok := queryID(c, "catId")
	if !ok {
		return
	}
	if !requireOwnerAccess(c, ownerID) {
		return
	}
	ack, err := h.composer.AddCatToOwner(c.Request.Context(), ownerID, catID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": ack})
}

func (h *Handler) RemoveCatFromOwner(c *gin.Context) {
	ownerID, ok := queryID(c, "ownerId")
	if !ok {
		return
	}
	catID, ok := queryID(c, "catId")
	if !ok {
		return
	}
	if !requireOwnerAccess(c, ownerID) {
		return
	}
	ack, err := h.composer.RemoveCatFromOwner(c.Request.Context(), ownerID, catID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": ack})
}

// ---------- auth routes ----------

func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to register user")
		return
	}
	user := &models.User{
		Username:     req.Username,
		PasswordHash: passwordHash,
		Role:         req.Role,
		OwnerID:      req.OwnerID,
	}
	if err := h.users.Create(user); err != nil {
		if err.Error() == "username already exists" {
			middleware.RespondWithError(c, http.StatusConflict, "Username already exists")
			return
		}
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to register user")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "User \"" + user.Username + "\" registered successfully.",
	})
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	user, err := h.users.FindByUsername(req.Username)
	if err != nil || !utils.CheckPassword(req.Password, user.PasswordHash) {
		middleware.RespondWithError(c, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	token, err := middleware.IssueToken(user)
	if err != nil {
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"role":    user.Role,
		"ownerId": user.OwnerID,
	})
}
