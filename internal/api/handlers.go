// Package api 提供serve模式下的HTTP接口
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"customer-profile-sync/internal/config"
	"customer-profile-sync/internal/model"
	"customer-profile-sync/internal/scheduler"
	"customer-profile-sync/internal/store"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 500
)

// SyncController 调度器对外暴露的操作
type SyncController interface {
	Stats() scheduler.Stats
	TriggerNow() error
}

// ProfileReader 读取单个画像
type ProfileReader interface {
	Get(ctx context.Context, customerID string) (*model.CustomerProfile, error)
}

// RunLister 读取同步历史
type RunLister interface {
	Recent(ctx context.Context, limit int) ([]model.SyncRun, error)
}

// Handler HTTP接口处理器
type Handler struct {
	sync     SyncController
	profiles ProfileReader
	runs     RunLister
	log      logrus.FieldLogger
}

type errorResponse struct {
	Error string `json:"error"`
}

type triggerResponse struct {
	Message string `json:"message"`
}

type profileResponse struct {
	CustomerID      string  `json:"customer_id"`
	OpenID          *string `json:"open_id"`
	VipNum          *int64  `json:"vip_num"`
	Phone           *string `json:"phone"`
	FirstOrderDate  string  `json:"first_order_date"`
	LastOrderDate   string  `json:"last_order_date"`
	TotalOrders     int64   `json:"total_orders"`
	TotalSpend      string  `json:"total_spend"`
	AvgOrderAmount  string  `json:"avg_order_amount"`
	CustomerSegment *string `json:"customer_segment"`
	RFMScore        *string `json:"rfm_score"`
	AgeGroup        *string `json:"age_group"`
}

type runResponse struct {
	RunID           string     `json:"run_id"`
	Status          string     `json:"status"`
	OrdersRead      int64      `json:"orders_read"`
	ProfilesRead    int64      `json:"profiles_read"`
	ProfilesWritten int64      `json:"profiles_written"`
	ProfilesFailed  int64      `json:"profiles_failed"`
	Anomalies       int64      `json:"anomalies"`
	Limit           int        `json:"limit"`
	FailedIDs       string     `json:"failed_ids,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	StartTime       time.Time  `json:"start_time"`
	FinishTime      *time.Time `json:"finish_time"`
}

// NewHandler 创建处理器
func NewHandler(sync SyncController, profiles ProfileReader, runs RunLister, log logrus.FieldLogger) *Handler {
	return &Handler{
		sync:     sync,
		profiles: profiles,
		runs:     runs,
		log:      log.WithField("component", "api"),
	}
}

// Routes 设置API路由
func (h *Handler) Routes() *mux.Router {
	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/status", h.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/sync", h.handleTrigger).Methods(http.MethodPost)
	api.HandleFunc("/runs", h.handleRuns).Methods(http.MethodGet)
	api.HandleFunc("/profiles/{customer_id}", h.handleProfile).Methods(http.MethodGet)

	return router
}

// handleStatus 返回调度器状态和最近一次同步结果
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.sync.Stats())
}

// handleTrigger 立即触发一次同步
func (h *Handler) handleTrigger(w http.ResponseWriter, r *http.Request) {
	err := h.sync.TriggerNow()
	switch {
	case errors.Is(err, scheduler.ErrBusy):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, scheduler.ErrStopped):
		respondWithError(w, http.StatusServiceUnavailable, err.Error())
	case err != nil:
		respondWithError(w, http.StatusInternalServerError, err.Error())
	default:
		h.log.Info("manual sync triggered")
		respondWithJSON(w, http.StatusAccepted, triggerResponse{Message: "sync started"})
	}
}

// handleRuns 返回最近的同步记录
func (h *Handler) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n > maxRunsLimit {
			n = maxRunsLimit
		}
		limit = n
	}

	runs, err := h.runs.Recent(r.Context(), limit)
	if err != nil {
		h.log.WithError(err).Error("failed to list sync runs")
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response := make([]runResponse, 0, len(runs))
	for _, run := range runs {
		response = append(response, runResponse{
			RunID:           run.RunID,
			Status:          string(run.Status),
			OrdersRead:      run.OrdersRead,
			ProfilesRead:    run.ProfilesRead,
			ProfilesWritten: run.ProfilesWritten,
			ProfilesFailed:  run.ProfilesFailed,
			Anomalies:       run.Anomalies,
			Limit:           run.Limit,
			FailedIDs:       run.FailedIDs,
			ErrorMessage:    run.ErrorMessage,
			StartTime:       run.StartTime,
			FinishTime:      run.FinishTime,
		})
	}
	respondWithJSON(w, http.StatusOK, response)
}

// handleProfile 按客户身份返回画像
func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["customer_id"]

	p, err := h.profiles.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "Profile not found")
		return
	}
	if err != nil {
		h.log.WithError(err).WithField("customer_id", id).Error("failed to get profile")
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, profileResponse{
		CustomerID:      p.CustomerID,
		OpenID:          p.OpenID,
		VipNum:          p.VipNum,
		Phone:           p.Phone,
		FirstOrderDate:  p.FirstOrderDate.Format(config.DateLayout),
		LastOrderDate:   p.LastOrderDate.Format(config.DateLayout),
		TotalOrders:     p.TotalOrders,
		TotalSpend:      p.TotalSpend.StringFixed(2),
		AvgOrderAmount:  p.AvgOrderAmount.StringFixed(2),
		CustomerSegment: p.CustomerSegment,
		RFMScore:        p.RFMScore,
		AgeGroup:        p.AgeGroup,
	})
}

// respondWithError 返回错误响应
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, errorResponse{Error: message})
}

// respondWithJSON 返回JSON响应
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("JSON marshaling error: " + err.Error()))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
