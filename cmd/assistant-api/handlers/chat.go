// Package handlers provides HTTP handlers for the sales assistant API.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/bigdipper/sales-assistant/internal/catalog"
	"github.com/bigdipper/sales-assistant/internal/chat"
	"github.com/bigdipper/sales-assistant/internal/observability"
)

// maxMessageBytes bounds a single chat message body.
const maxMessageBytes = 64 << 10

// ChatHandler handles conversation turns.
type ChatHandler struct {
	logger  *observability.Logger
	service *chat.Service
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(logger *observability.Logger, service *chat.Service) *ChatHandler {
	return &ChatHandler{logger: logger, service: service}
}

// ChatRequestDTO represents one chat turn request.
type ChatRequestDTO struct {
	SessionID string `json:"sessionId,omitempty"`
	Message   string `json:"message"`
	Debug     bool   `json:"debug,omitempty"`
}

// ChatResponseDTO represents the assistant's reply.
type ChatResponseDTO struct {
	SessionID     string          `json:"sessionId"`
	Answer        string          `json:"answer"`
	Strategy      string          `json:"strategy,omitempty"`
	Clarification bool            `json:"clarification,omitempty"`
	UsedMemory    bool            `json:"usedMemory,omitempty"`
	Products      []ProductDTO    `json:"products"`
	Detection     *chat.Detection `json:"detection,omitempty"`
}

// ProductDTO is the wire form of a resolved product record.
type ProductDTO struct {
	ID               int      `json:"id,omitempty"`
	Code             string   `json:"code"`
	DescriptionShort string   `json:"descriptionShort,omitempty"`
	DescriptionLong  string   `json:"descriptionLong,omitempty"`
	Price            float64  `json:"price,omitempty"`
	Stock            int      `json:"stock"`
	Image            string   `json:"image,omitempty"`
	DataSheet        string   `json:"dataSheet,omitempty"`
	Links            []string `json:"links,omitempty"`
}

// Chat handles POST /api/v1/chat.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var reqDTO ChatRequestDTO
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBytes)).Decode(&reqDTO); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if strings.TrimSpace(reqDTO.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required", "")
		return
	}

	reply := h.service.HandleMessage(r.Context(), reqDTO.SessionID, reqDTO.Message, reqDTO.Debug)

	respDTO := ChatResponseDTO{
		SessionID:     reply.SessionID,
		Answer:        reply.Answer,
		Strategy:      reply.Strategy,
		Clarification: reply.Clarification,
		UsedMemory:    reply.UsedMemory,
		Products:      make([]ProductDTO, 0, len(reply.Products)),
		Detection:     reply.Detection,
	}
	for _, p := range reply.Products {
		respDTO.Products = append(respDTO.Products, toProductDTO(p))
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(respDTO); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func toProductDTO(p catalog.Record) ProductDTO {
	return ProductDTO{
		ID:               p.ID,
		Code:             p.Code,
		DescriptionShort: p.DescriptionShort,
		DescriptionLong:  p.DescriptionLong,
		Price:            p.Price,
		Stock:            p.Stock,
		Image:            p.Image,
		DataSheet:        p.DataSheet,
		Links:            p.Links,
	}
}

func writeError(w http.ResponseWriter, status int, message, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := map[string]string{
		"error":   message,
		"message": message,
	}
	if detail != "" {
		resp["detail"] = detail
	}
	json.NewEncoder(w).Encode(resp)
}
