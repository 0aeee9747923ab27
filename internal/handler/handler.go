package handler

import (
	"auth_gateway/internal/models"
	"auth_gateway/internal/service"
	"auth_gateway/internal/storage"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const (
	msgInternal = "Internal server error"
)

type TokenVerifier interface {
	Verify(token string) (string, error)
}

type Handler struct {
	authService     service.Auth
	resourceService service.Resources
	verifier        TokenVerifier
	log             *slog.Logger
}

// RouterConfig carries the outer surface settings of the router.
type RouterConfig struct {
	MetricsPath    string
	MetricsHandler http.Handler
	AllowOrigins   []string
}

type errorResponse struct {
	Message string `json:"message"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type loginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

type verifyResponse struct {
	Message string `json:"message"`
	Email   string `json:"email"`
}

func newErrorResponse(c *gin.Context, statusCode int, errMessage string) {
	c.AbortWithStatusJSON(statusCode, errorResponse{Message: errMessage})
}

func NewHandler(authSrvc service.Auth, resourceSrvc service.Resources, verifier TokenVerifier, lgr *slog.Logger) *Handler {
	return &Handler{
		authService:     authSrvc,
		resourceService: resourceSrvc,
		verifier:        verifier,
		log:             lgr,
	}
}

func (h *Handler) InitRoutes(cfg RouterConfig) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(RequestLogger(h.log))
	router.Use(cors.New(corsConfig(cfg.AllowOrigins)))

	router.POST("/login", h.Login)
	router.POST("/register", h.Register)
	router.GET("/verify", AuthMiddleware(h.verifier), h.Verify)

	actions := router.Group("/actions")
	actions.Use(AuthMiddleware(h.verifier))
	{
		actions.POST("/create", h.CreateResource)
		actions.GET("/read", h.ReadResources)
		actions.POST("/update", h.UpdateResource)
		actions.DELETE("/delete", h.DeleteResource)
	}

	if cfg.MetricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(cfg.MetricsHandler))
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length", requestIDHeader},
		MaxAge:        12 * time.Hour,
	}

	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	}

	return cfg
}

// POST /register
func (h *Handler) Register(c *gin.Context) {
	const op = "handler.Register"

	log := h.log.With(slog.String("op", op), slog.String("request_id", RequestID(c)))

	creds, ok := bindCredentials(c, log)
	if !ok {
		return
	}

	err := h.authService.Register(c.Request.Context(), creds.Email, creds.Password)
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			log.Info("user already exists", slog.String("email", creds.Email))

			newErrorResponse(c, http.StatusConflict, "User already exists")

			return
		}

		log.Error("failed to register user", slog.Any("error", err))

		newErrorResponse(c, http.StatusInternalServerError, msgInternal)

		return
	}

	log.Info("user registered", slog.String("email", creds.Email))

	c.JSON(http.StatusCreated, messageResponse{Message: "User registered successfully"})
}

// POST /login
func (h *Handler) Login(c *gin.Context) {
	const op = "handler.Login"

	log := h.log.With(slog.String("op", op), slog.String("request_id", RequestID(c)))

	creds, ok := bindCredentials(c, log)
	if !ok {
		return
	}

	token, err := h.authService.Login(c.Request.Context(), creds.Email, creds.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			log.Info("invalid credentials", slog.String("email", creds.Email))

			newErrorResponse(c, http.StatusUnauthorized, "Invalid credentials")

			return
		}

		log.Error("failed to login", slog.Any("error", err))

		newErrorResponse(c, http.StatusInternalServerError, msgInternal)

		return
	}

	c.JSON(http.StatusOK, loginResponse{Message: "Login successful", Token: token})
}

// GET /verify
func (h *Handler) Verify(c *gin.Context) {
	c.JSON(http.StatusOK, verifyResponse{Message: "Token is valid", Email: CurrentUser(c)})
}

func bindCredentials(c *gin.Context, log *slog.Logger) (models.Credentials, bool) {
	var creds models.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		log.Info("failed to read request body", slog.Any("error", err))

		newErrorResponse(c, http.StatusBadRequest, "Invalid request body")

		return creds, false
	}

	if creds.Email == "" || creds.Password == "" {
		newErrorResponse(c, http.StatusBadRequest, "Missing email or password")

		return creds, false
	}

	return creds, true
}
