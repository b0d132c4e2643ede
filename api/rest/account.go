package rest

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/materialplanner/audit"
	"github.com/kasuganosora/materialplanner/game/account"
	"github.com/kasuganosora/materialplanner/game/itemstats"
	"github.com/kasuganosora/materialplanner/game/planner"
	mw "github.com/kasuganosora/materialplanner/middleware"
	"github.com/kasuganosora/materialplanner/model"
	"github.com/kasuganosora/materialplanner/resource"
	"go.uber.org/zap"
)

// AccountStore is the subset of account.Repository the handlers need.
type AccountStore interface {
	Create(ctx context.Context, name string) (int64, error)
	Load(ctx context.Context, id int64) (*account.Snapshot, error)
	SetPreferences(ctx context.Context, id int64, opts itemstats.FilterOptions) error
}

// ImportHistory records snapshot imports and lists them back.
type ImportHistory interface {
	Log(entry audit.ImportEntry) bool
	Recent(ctx context.Context, accountID int64, limit int) ([]model.ImportLog, error)
}

// AccountHandler handles account snapshot and item statistics endpoints.
type AccountHandler struct {
	accounts AccountStore
	planner  *planner.Service
	imports  ImportHistory
	logger   *zap.Logger
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accounts AccountStore, svc *planner.Service, imports ImportHistory, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, planner: svc, imports: imports, logger: logger}
}

// snapshotBody is the wire form of an account snapshot.
type snapshotBody struct {
	Roster      []itemstats.RosterServant `json:"roster"`
	Items       map[resource.ItemID]int   `json:"items"`
	QP          int                       `json:"qp"`
	Costumes    []resource.CostumeID      `json:"costumes"`
	Soundtracks []resource.SoundtrackID   `json:"soundtracks"`
}

func (b *snapshotBody) toAccount() itemstats.Account {
	a := itemstats.Account{
		Roster:      b.Roster,
		Resources:   itemstats.Resources{Items: b.Items, QP: b.QP},
		Costumes:    make(map[resource.CostumeID]bool, len(b.Costumes)),
		Soundtracks: make(map[resource.SoundtrackID]bool, len(b.Soundtracks)),
	}
	for _, id := range b.Costumes {
		a.Costumes[id] = true
	}
	for _, id := range b.Soundtracks {
		a.Soundtracks[id] = true
	}
	return a
}

func (b *snapshotBody) validate() string {
	if b.QP < 0 {
		return "qp must not be negative"
	}
	for id, qty := range b.Items {
		if qty < 0 {
			return "item " + strconv.Itoa(int(id)) + " has negative quantity"
		}
	}
	for _, rs := range b.Roster {
		if rs.Ascension < 0 {
			return "ascension must not be negative"
		}
		for _, lv := range append(rs.Skills[:], rs.AppendSkills[:]...) {
			if lv < 0 || lv > itemstats.MaxSkillLevel {
				return "skill level out of range"
			}
		}
	}
	return ""
}

func snapshotFromAccount(a itemstats.Account) snapshotBody {
	b := snapshotBody{
		Roster:      a.Roster,
		Items:       a.Resources.Items,
		QP:          a.Resources.QP,
		Costumes:    []resource.CostumeID{},
		Soundtracks: []resource.SoundtrackID{},
	}
	for id, ok := range a.Costumes {
		if ok {
			b.Costumes = append(b.Costumes, id)
		}
	}
	for id, ok := range a.Soundtracks {
		if ok {
			b.Soundtracks = append(b.Soundtracks, id)
		}
	}
	sort.Slice(b.Costumes, func(i, j int) bool { return b.Costumes[i] < b.Costumes[j] })
	sort.Slice(b.Soundtracks, func(i, j int) bool { return b.Soundtracks[i] < b.Soundtracks[j] })
	return b
}

// Create handles POST /api/accounts.
func (h *AccountHandler) Create(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required,max=64"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := h.accounts.Create(c.Request.Context(), req.Name)
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"account_id": id})
}

// GetSnapshot handles GET /api/accounts/:id/snapshot.
func (h *AccountHandler) GetSnapshot(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	snap, err := h.accounts.Load(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"account_id": snap.AccountID,
		"name":       snap.Name,
		"version":    snap.Version,
		"snapshot":   snapshotFromAccount(snap.Account),
	})
}

// PutSnapshot handles PUT /api/accounts/:id/snapshot.
func (h *AccountHandler) PutSnapshot(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var body snapshotBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if msg := body.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	start := time.Now()
	result, err := h.planner.ImportAccount(c.Request.Context(), id, body.toAccount())
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.imports.Log(audit.ImportEntry{
		TraceID:    mw.GetTraceID(c),
		AccountID:  id,
		Version:    result.Version,
		IP:         c.ClientIP(),
		RosterSize: len(body.Roster),
		ItemCount:  len(body.Items),
		Missing:    result.Missing,
		Duration:   time.Since(start),
	})
	c.JSON(http.StatusOK, result)
}

const (
	defaultImportLimit = 20
	maxImportLimit     = 100
)

// Imports handles GET /api/accounts/:id/imports.
func (h *AccountHandler) Imports(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	limit := defaultImportLimit
	if raw, ok := c.GetQuery("limit"); ok {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = min(n, maxImportLimit)
	}
	logs, err := h.imports.Recent(c.Request.Context(), id, limit)
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"imports": logs})
}

// GetPreferences handles GET /api/accounts/:id/preferences.
func (h *AccountHandler) GetPreferences(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	snap, err := h.accounts.Load(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"saved":       snap.Preferences != nil,
		"preferences": h.planner.Options(snap, nil),
	})
}

// PutPreferences handles PUT /api/accounts/:id/preferences.
func (h *AccountHandler) PutPreferences(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var opts itemstats.FilterOptions
	if err := c.ShouldBindJSON(&opts); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.accounts.SetPreferences(c.Request.Context(), id, opts); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"preferences": opts})
}

// ItemStats handles GET /api/accounts/:id/item-stats.
func (h *AccountHandler) ItemStats(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	opts, err := filterFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	stats, err := h.planner.ItemStats(c.Request.Context(), id, opts)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": planner.Rows(stats)})
}

// ServantItemStats handles GET /api/accounts/:id/servants/:instance/item-stats.
func (h *AccountHandler) ServantItemStats(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	instanceID, ok := parseID(c, "instance")
	if !ok {
		return
	}
	opts, err := filterFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	stats, err := h.planner.ServantStats(c.Request.Context(), id, instanceID, opts)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": planner.Rows(stats)})
}

// filterQueryKeys maps query parameters to filter fields.
var filterQueryKeys = []string{"unsummoned", "append_skills", "lores", "costumes", "soundtracks"}

// filterFromQuery returns nil when no filter parameter is present. Otherwise
// every parameter is read and absent ones are false.
func filterFromQuery(c *gin.Context) (*itemstats.FilterOptions, error) {
	vals := make([]bool, len(filterQueryKeys))
	present := false
	for i, key := range filterQueryKeys {
		raw, ok := c.GetQuery(key)
		if !ok {
			continue
		}
		present = true
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, errors.New("invalid value for " + key)
		}
		vals[i] = v
	}
	if !present {
		return nil, nil
	}
	return &itemstats.FilterOptions{
		IncludeUnsummonedServants: vals[0],
		IncludeAppendSkills:       vals[1],
		IncludeLores:              vals[2],
		IncludeCostumes:           vals[3],
		IncludeSoundtracks:        vals[4],
	}, nil
}

func parseID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + param})
		return 0, false
	}
	return id, true
}

func (h *AccountHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, account.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
	case errors.Is(err, planner.ErrServantNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "servant not found"})
	default:
		h.internalError(c, err)
	}
}

func (h *AccountHandler) internalError(c *gin.Context, err error) {
	h.logger.Error("request failed",
		zap.String("path", c.Request.URL.Path),
		zap.String("trace_id", mw.GetTraceID(c)),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
