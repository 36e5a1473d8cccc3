package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/senyabanana/auction-service/internal/models"
	"github.com/senyabanana/auction-service/internal/services"
	"github.com/senyabanana/auction-service/internal/utils"

	"github.com/sirupsen/logrus"
)

// AuctionHandler - структура для обработки HTTP-запросов.
type AuctionHandler struct {
	Service *services.BidService
	Logger  *logrus.Logger
	Timeout time.Duration
}

// NewAuctionHandler создает новый экземпляр AuctionHandler.
func NewAuctionHandler(service *services.BidService, logger *logrus.Logger, timeout time.Duration) *AuctionHandler {
	return &AuctionHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

// GetAuctions обрабатывает запросы для получения списка аукционов.
func (h *AuctionHandler) GetAuctions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	auctions, err := h.Service.GetAuctions(ctx, r.URL.Query().Get("page"))
	if err != nil {
		h.sendError(w, err, "failed to retrieve auctions")
		return
	}

	utils.SendJSONResponse(w, http.StatusOK, auctions)
}

// GetAuctionByID обрабатывает запросы для получения публичного документа аукциона.
func (h *AuctionHandler) GetAuctionByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	auction, err := h.Service.GetAuctionByID(ctx, r.PathValue("auctionId"))
	if err != nil {
		h.sendError(w, err, "failed to retrieve auction")
		return
	}

	utils.SendJSONResponse(w, http.StatusOK, auction)
}

// PostBid обрабатывает подачу ставки участником в текущем раунде.
func (h *AuctionHandler) PostBid(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only POST is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var payload models.BidPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	view, err := h.Service.PostBid(
		ctx,
		r.PathValue("auctionId"),
		r.PathValue("bidderId"),
		r.URL.Query().Get("hash"),
		payload,
	)
	if err != nil {
		h.sendError(w, err, "failed to post bid")
		return
	}

	utils.SendJSONResponse(w, http.StatusOK, view)
}

// CheckAuthorization проверяет секрет участника и возвращает его текущую ставку.
func (h *AuctionHandler) CheckAuthorization(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid method, only POST is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var payload struct {
		BidderID string `json:"bidder_id"`
		Hash     string `json:"hash"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	view, err := h.Service.CheckAuthorization(ctx, r.PathValue("auctionId"), payload.BidderID, payload.Hash)
	if err != nil {
		h.sendError(w, err, "failed to check authorization")
		return
	}

	utils.SendJSONResponse(w, http.StatusOK, view)
}

func (h *AuctionHandler) sendError(w http.ResponseWriter, err error, fallback string) {
	h.Logger.Println(err)
	if errorResponse, ok := err.(*models.ErrorResponse); ok {
		utils.SendErrorResponse(w, errorResponse.StatusCode, errorResponse.Message)
		return
	}
	utils.SendErrorResponse(w, http.StatusInternalServerError, fallback)
}
