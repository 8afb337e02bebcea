package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/homestead/backend/internal/application/notification"
	"github.com/homestead/backend/internal/application/scheduling"
	"github.com/homestead/backend/internal/infrastructure/integration"
	"github.com/homestead/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// DocuSignSignatureHeader carries the Connect HMAC
const DocuSignSignatureHeader = "X-DocuSign-Signature-1"

const maxWebhookBody = 1 << 20

// Messenger sends ad-hoc staff messages
type Messenger interface {
	SendSMS(ctx context.Context, in notification.SendInput) (string, error)
	SendEmail(ctx context.Context, in notification.SendInput) (string, error)
}

// Contracts is the DocuSign adapter
type Contracts interface {
	ListTemplates(ctx context.Context) ([]integration.Template, error)
	SendEnvelope(ctx context.Context, in integration.EnvelopeRequest) (string, error)
	VerifyConnectSignature(body []byte, signature string) error
}

// EnvelopeEvents applies DocuSign Connect notifications to transactions
type EnvelopeEvents interface {
	HandleConnectEvent(ctx context.Context, ev integration.ConnectEvent) error
}

// CalendarLinks runs the Google Calendar OAuth flow and manual syncs
type CalendarLinks interface {
	AuthURL(userID uuid.UUID) (*scheduling.AuthURLDTO, error)
	Callback(ctx context.Context, in scheduling.CallbackInput) (*scheduling.ConnectionDTO, error)
	Sync(ctx context.Context, appointmentID uuid.UUID) (*scheduling.DTO, error)
}

// Valuations looks up property values
type Valuations interface {
	ValueEstimate(ctx context.Context, address string, compCount int) (integration.ValueEstimate, error)
}

// ShippingQuotes prices delivering a home
type ShippingQuotes interface {
	QuoteForHome(ctx context.Context, homeID uuid.UUID, address string) (*integration.ShippingQuote, error)
}

// AddressLookup geocodes addresses
type AddressLookup interface {
	Geocode(ctx context.Context, address string) (integration.GeocodeResult, error)
}

// FunctionsDeps wires the third-party backed endpoints. Nil members answer 503.
type FunctionsDeps struct {
	Messenger  Messenger
	Contracts  Contracts
	Envelopes  EnvelopeEvents
	Calendar   CalendarLinks
	Valuations Valuations
	Shipping   ShippingQuotes
	Geocoder   AddressLookup
	Logger     *zap.Logger
}

// FunctionsHandler serves the /functions endpoints backed by external providers
type FunctionsHandler struct {
	BaseHandler
	deps   FunctionsDeps
	logger *zap.Logger
}

// NewFunctionsHandler creates a new FunctionsHandler
func NewFunctionsHandler(deps FunctionsDeps) *FunctionsHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FunctionsHandler{deps: deps, logger: logger}
}

// SendEnvelopeRequest sends a template to signers
type SendEnvelopeRequest struct {
	TemplateID   string               `json:"template_id" binding:"required"`
	Signers      []integration.Signer `json:"signers" binding:"required,min=1,dive"`
	EmailSubject string               `json:"email_subject" binding:"max=200"`
	CustomFields map[string]string    `json:"custom_fields"`
}

// EnvelopeResponse names the sent envelope
type EnvelopeResponse struct {
	EnvelopeID string `json:"envelope_id"`
}

// MessageResponse names the provider's message id
type MessageResponse struct {
	MessageID string `json:"message_id"`
}

// WebhookResponse acknowledges a webhook
type WebhookResponse struct {
	Received bool `json:"received"`
}

// ShippingQuoteRequest asks for a delivery price
type ShippingQuoteRequest struct {
	HomeID  uuid.UUID `json:"home_id" binding:"required"`
	Address string    `json:"address" binding:"required,max=500"`
}

func (h *FunctionsHandler) notConfigured(c *gin.Context, what string) {
	h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeNotConfigured, what+" is not configured")
}

// SendSMS godoc
// @ID           sendSMS
// @Summary      Send an SMS
// @Tags         functions
// @Accept       json
// @Produce      json
// @Param        request body notification.SendInput true "Message"
// @Success      200 {object} APIResponse[MessageResponse]
// @Failure      502 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /functions/send-sms [post]
func (h *FunctionsHandler) SendSMS(c *gin.Context) {
	h.send(c, func(m Messenger) func(context.Context, notification.SendInput) (string, error) { return m.SendSMS })
}

// SendEmail godoc
// @ID           sendEmail
// @Summary      Send an email
// @Tags         functions
// @Accept       json
// @Produce      json
// @Param        request body notification.SendInput true "Message"
// @Success      200 {object} APIResponse[MessageResponse]
// @Failure      502 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /functions/send-email [post]
func (h *FunctionsHandler) SendEmail(c *gin.Context) {
	h.send(c, func(m Messenger) func(context.Context, notification.SendInput) (string, error) { return m.SendEmail })
}

func (h *FunctionsHandler) send(c *gin.Context, pick func(Messenger) func(context.Context, notification.SendInput) (string, error)) {
	if h.deps.Messenger == nil {
		h.notConfigured(c, "Messaging")
		return
	}
	var in notification.SendInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.BindError(c, err)
		return
	}
	id, err := pick(h.deps.Messenger)(c.Request.Context(), in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, MessageResponse{MessageID: id})
}

// DocuSignTemplates godoc
// @ID           docusignTemplates
// @Summary      List DocuSign templates
// @Tags         functions
// @Produce      json
// @Success      200 {object} APIResponse[[]integration.Template]
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /functions/docusign/templates [get]
func (h *FunctionsHandler) DocuSignTemplates(c *gin.Context) {
	if h.deps.Contracts == nil {
		h.notConfigured(c, "DocuSign")
		return
	}
	list, err := h.deps.Contracts.ListTemplates(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if list == nil {
		list = []integration.Template{}
	}
	h.Success(c, list)
}

// DocuSignSend godoc
// @ID           docusignSend
// @Summary      Send a template envelope
// @Tags         functions
// @Accept       json
// @Produce      json
// @Param        request body SendEnvelopeRequest true "Envelope"
// @Success      200 {object} APIResponse[EnvelopeResponse]
// @Failure      502 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /functions/docusign/send [post]
func (h *FunctionsHandler) DocuSignSend(c *gin.Context) {
	if h.deps.Contracts == nil {
		h.notConfigured(c, "DocuSign")
		return
	}
	var req SendEnvelopeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	id, err := h.deps.Contracts.SendEnvelope(c.Request.Context(), integration.EnvelopeRequest{
		TemplateID:   req.TemplateID,
		Signers:      req.Signers,
		EmailSubject: req.EmailSubject,
		CustomFields: req.CustomFields,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, EnvelopeResponse{EnvelopeID: id})
}

// DocuSignWebhook godoc
// @ID           docusignWebhook
// @Summary      DocuSign Connect notifications
// @Description  The raw body must carry a valid X-DocuSign-Signature-1 HMAC. A completed envelope marks its transaction contract_signed.
// @Tags         functions
// @Accept       json
// @Produce      json
// @Param        X-DocuSign-Signature-1 header string true "base64 HMAC-SHA256 of the body"
// @Success      200 {object} APIResponse[WebhookResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Router       /functions/docusign/webhook [post]
func (h *FunctionsHandler) DocuSignWebhook(c *gin.Context) {
	if h.deps.Contracts == nil || h.deps.Envelopes == nil {
		h.notConfigured(c, "DocuSign")
		return
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		h.BadRequest(c, "Unreadable request body")
		return
	}
	if err := h.deps.Contracts.VerifyConnectSignature(body, c.GetHeader(DocuSignSignatureHeader)); err != nil {
		h.logger.Warn("Rejected DocuSign webhook", zap.String("client_ip", c.ClientIP()))
		h.HandleError(c, err)
		return
	}
	ev, err := integration.ParseConnectEvent(body)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if err := h.deps.Envelopes.HandleConnectEvent(c.Request.Context(), ev); err != nil {
		h.logger.Error("DocuSign webhook failed",
			zap.String("envelope_id", ev.EnvelopeID),
			zap.String("status", ev.Status),
			zap.Error(err))
		h.HandleError(c, err)
		return
	}
	h.Success(c, WebhookResponse{Received: true})
}

// GoogleCalendarAuthURL godoc
// @ID           googleCalendarAuthURL
// @Summary      Get the Google consent URL for the caller
// @Tags         functions
// @Produce      json
// @Success      200 {object} APIResponse[scheduling.AuthURLDTO]
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /functions/google-calendar/auth-url [get]
func (h *FunctionsHandler) GoogleCalendarAuthURL(c *gin.Context) {
	if h.deps.Calendar == nil {
		h.notConfigured(c, "Google Calendar")
		return
	}
	who, ok := h.requireCaller(c)
	if !ok {
		return
	}
	u, err := h.deps.Calendar.AuthURL(who.UserID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, u)
}

// GoogleCalendarCallback godoc
// @ID           googleCalendarCallback
// @Summary      Google OAuth redirect target
// @Description  The signed state identifies the staff member, so the endpoint is public
// @Tags         functions
// @Produce      json
// @Param        code query string true "Authorization code"
// @Param        state query string true "Signed state"
// @Success      200 {object} APIResponse[scheduling.ConnectionDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Router       /functions/google-calendar/callback [get]
func (h *FunctionsHandler) GoogleCalendarCallback(c *gin.Context) {
	if h.deps.Calendar == nil {
		h.notConfigured(c, "Google Calendar")
		return
	}
	var in scheduling.CallbackInput
	if err := c.ShouldBindQuery(&in); err != nil {
		h.BindError(c, err)
		return
	}
	conn, err := h.deps.Calendar.Callback(c.Request.Context(), in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, conn)
}

// GoogleCalendarSync godoc
// @ID           googleCalendarSync
// @Summary      Push an appointment to the staff calendar now
// @Tags         functions
// @Accept       json
// @Produce      json
// @Param        request body scheduling.SyncInput true "Appointment"
// @Success      200 {object} APIResponse[scheduling.DTO]
// @Failure      409 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /functions/google-calendar/sync [post]
func (h *FunctionsHandler) GoogleCalendarSync(c *gin.Context) {
	if h.deps.Calendar == nil {
		h.notConfigured(c, "Google Calendar")
		return
	}
	var in scheduling.SyncInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.BindError(c, err)
		return
	}
	appt, err := h.deps.Calendar.Sync(c.Request.Context(), in.AppointmentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, appt)
}

// RentcastComps godoc
// @ID           rentcastComps
// @Summary      Value estimate and comparable sales for an address
// @Tags         functions
// @Produce      json
// @Param        address query string true "Property address"
// @Param        comp_count query int false "Comparables" default(5) minimum(1) maximum(25)
// @Success      200 {object} APIResponse[integration.ValueEstimate]
// @Failure      400 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /functions/rentcast/comps [get]
func (h *FunctionsHandler) RentcastComps(c *gin.Context) {
	if h.deps.Valuations == nil {
		h.notConfigured(c, "Rentcast")
		return
	}
	address := c.Query("address")
	if address == "" {
		h.BadRequest(c, "address is required")
		return
	}
	count := 5
	if raw := c.Query("comp_count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 25 {
			h.BadRequest(c, "comp_count must be between 1 and 25")
			return
		}
		count = n
	}
	est, err := h.deps.Valuations.ValueEstimate(c.Request.Context(), address, count)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, est)
}

// ShippingQuote godoc
// @ID           shippingQuote
// @Summary      Quote delivering a home to an address
// @Description  Distance from the home's factory times the per-mile rate of its section type, plus fixed fees
// @Tags         functions
// @Accept       json
// @Produce      json
// @Param        request body ShippingQuoteRequest true "Home and destination"
// @Success      200 {object} APIResponse[integration.ShippingQuote]
// @Failure      422 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /functions/shipping/quote [post]
func (h *FunctionsHandler) ShippingQuote(c *gin.Context) {
	if h.deps.Shipping == nil {
		h.notConfigured(c, "Shipping")
		return
	}
	var req ShippingQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	q, err := h.deps.Shipping.QuoteForHome(c.Request.Context(), req.HomeID, req.Address)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, q)
}

// Geocode godoc
// @ID           geocode
// @Summary      Resolve an address to coordinates
// @Tags         functions
// @Produce      json
// @Param        address query string true "Address"
// @Success      200 {object} APIResponse[integration.GeocodeResult]
// @Failure      422 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /functions/geocode [get]
func (h *FunctionsHandler) Geocode(c *gin.Context) {
	if h.deps.Geocoder == nil {
		h.notConfigured(c, "Geocoding")
		return
	}
	address := c.Query("address")
	if address == "" {
		h.BadRequest(c, "address is required")
		return
	}
	res, err := h.deps.Geocoder.Geocode(c.Request.Context(), address)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}
