package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"GiftFM/catalog"
	"GiftFM/config"
	"GiftFM/core/live"
	"GiftFM/core/overlay"
	"GiftFM/logger"
	"GiftFM/model"
	"GiftFM/store"

	"github.com/gorilla/mux"
)

// APIHandler is the local control surface consumed by the GUI: mapping
// CRUD, library management, queue progress and feed control.
type APIHandler struct {
	settings *store.SettingsStore
	catalog  *catalog.Catalog
	svc      *overlay.Service
	feed     live.Source
	cfg      *config.Config
}

// NewAPIHandler 创建控制面处理器
func NewAPIHandler(settings *store.SettingsStore, cat *catalog.Catalog, svc *overlay.Service, feed live.Source, cfg *config.Config) *APIHandler {
	return &APIHandler{settings: settings, catalog: cat, svc: svc, feed: feed, cfg: cfg}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// ========== 状态与队列 ==========

// StatusResponse 服务状态
type StatusResponse struct {
	Clients   int             `json:"clients"`
	BaseURL   string          `json:"baseUrl"`
	FeedState model.FeedState `json:"feedState"`
	RoomID    string          `json:"roomId"`
}

// StatusHandler 返回服务状态
func (h *APIHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, &StatusResponse{
		Clients:   h.svc.ClientCount(),
		BaseURL:   h.svc.BaseURL(),
		FeedState: h.feed.State(),
		RoomID:    h.cfg.RoomID,
	})
}

// QueueProgressHandler 返回当前批次进度
func (h *APIHandler) QueueProgressHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Progress())
}

// ClearQueueHandler 清空播放队列（尽力而为）
func (h *APIHandler) ClearQueueHandler(w http.ResponseWriter, r *http.Request) {
	h.svc.ClearQueue()
	writeJSON(w, http.StatusOK, h.svc.Progress())
}

// ========== 全局音量 ==========

// VolumeBody 全局音量
type VolumeBody struct {
	Volume float64 `json:"volume"`
}

// GetVolumeHandler 返回全局音量
func (h *APIHandler) GetVolumeHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, &VolumeBody{Volume: h.settings.GlobalVolume()})
}

// SetVolumeHandler 设置全局音量
func (h *APIHandler) SetVolumeHandler(w http.ResponseWriter, r *http.Request) {
	var body VolumeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "无效的请求", http.StatusBadRequest)
		return
	}
	if body.Volume < 0 || body.Volume > 1 {
		http.Error(w, "音量必须在 0 到 1 之间", http.StatusBadRequest)
		return
	}
	if err := h.settings.SetGlobalVolume(body.Volume); err != nil {
		logger.Error("failed to set global volume", logger.ErrorField(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, &body)
}

// ========== 礼物映射 ==========

// ListMappingsHandler 返回全部映射
func (h *APIHandler) ListMappingsHandler(w http.ResponseWriter, r *http.Request) {
	mappings, err := h.settings.ListMappings()
	if err != nil {
		logger.Error("failed to list mappings", logger.ErrorField(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if mappings == nil {
		mappings = []*model.GiftAudioMapping{}
	}
	writeJSON(w, http.StatusOK, mappings)
}

// GetMappingHandler 返回单个映射
func (h *APIHandler) GetMappingHandler(w http.ResponseWriter, r *http.Request) {
	giftID := mux.Vars(r)["giftId"]
	m, err := h.settings.GetMapping(giftID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if m == nil {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// SetMappingHandler 创建或更新映射。写入时不校验文件是否存在。
func (h *APIHandler) SetMappingHandler(w http.ResponseWriter, r *http.Request) {
	var m model.GiftAudioMapping
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		http.Error(w, "无效的请求", http.StatusBadRequest)
		return
	}
	if m.GiftID == "" {
		http.Error(w, "giftId 不能为空", http.StatusBadRequest)
		return
	}
	m.Normalize()
	if err := h.settings.SetMapping(&m); err != nil {
		logger.Error("failed to save mapping", logger.ErrorField(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, &m)
}

// DeleteMappingHandler 删除映射
func (h *APIHandler) DeleteMappingHandler(w http.ResponseWriter, r *http.Request) {
	giftID := mux.Vars(r)["giftId"]
	if err := h.settings.DeleteMapping(giftID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ========== 音频库 ==========

// ListAudiosHandler 返回库中全部音频
func (h *APIHandler) ListAudiosHandler(w http.ResponseWriter, r *http.Request) {
	files, err := h.catalog.List()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if files == nil {
		files = []model.AudioFile{}
	}
	writeJSON(w, http.StatusOK, files)
}

// ImportAudioHandler 导入音频：multipart 上传，或 JSON 里的 url 远程下载 /
// path 本机文件拷贝
func (h *APIHandler) ImportAudioHandler(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			URL  string `json:"url"`
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || (body.URL == "" && body.Path == "") {
			http.Error(w, "无效的请求", http.StatusBadRequest)
			return
		}

		var f *model.AudioFile
		var err error
		if body.URL != "" {
			f, err = h.catalog.ImportFromURL(body.URL)
		} else {
			f, err = h.catalog.ImportFromPath(body.Path)
		}
		if err != nil {
			logger.Error("audio import failed",
				logger.String("url", body.URL), logger.String("path", body.Path),
				logger.ErrorField(err))
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusCreated, f)
		return
	}

	if err := r.ParseMultipartForm(64 << 20); err != nil { // 64MB
		http.Error(w, "无效的上传", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		http.Error(w, "缺少 audio 文件字段", http.StatusBadRequest)
		return
	}
	defer file.Close()

	f, err := h.catalog.ImportFile(file, header.Filename)
	if err != nil {
		logger.Error("audio import failed", logger.ErrorField(err))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

// UpdateAudioBody 重命名 / 调整增益
type UpdateAudioBody struct {
	DisplayName *string  `json:"displayName,omitempty"`
	Gain        *float64 `json:"gain,omitempty"`
}

// UpdateAudioHandler 更新音频元数据
func (h *APIHandler) UpdateAudioHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var body UpdateAudioBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "无效的请求", http.StatusBadRequest)
		return
	}

	if body.DisplayName != nil {
		if err := h.catalog.Rename(id, *body.DisplayName); err != nil {
			h.audioError(w, err)
			return
		}
	}
	if body.Gain != nil {
		if err := h.catalog.SetGain(id, *body.Gain); err != nil {
			h.audioError(w, err)
			return
		}
	}

	f, err := h.catalog.Get(id)
	if err != nil {
		h.audioError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// DeleteAudioHandler 删除音频，并从所有映射中剔除
func (h *APIHandler) DeleteAudioHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	f, err := h.catalog.Delete(id)
	if err != nil {
		h.audioError(w, err)
		return
	}
	if err := h.settings.PruneAudioPath(f.Path); err != nil {
		logger.Warn("failed to prune mappings after delete",
			logger.String("path", f.Path), logger.ErrorField(err))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) audioError(w http.ResponseWriter, err error) {
	if errors.Is(err, catalog.ErrNotFound) {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

// ========== 上游事件源 ==========

// ConnectFeedHandler 用户发起的连接（含断线后重连）
func (h *APIHandler) ConnectFeedHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.feed.Connect(context.Background()); err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"state": h.feed.State()})
}

// DisconnectFeedHandler 用户发起的断开
func (h *APIHandler) DisconnectFeedHandler(w http.ResponseWriter, r *http.Request) {
	h.feed.Disconnect()
	writeJSON(w, http.StatusOK, map[string]interface{}{"state": h.feed.State()})
}
