// Package web serves the server-rendered dashboard: posting list with
// score badges, posting detail, stats, and a read-only config view.
// Templates and static assets are embedded so the binary stays
// self-contained.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"jobradar/internal/common/pagination"
	"jobradar/internal/domain/entity"
	"jobradar/internal/handler/http/pathutil"
	"jobradar/internal/pkg/config"
	"jobradar/internal/repository"
	jobUC "jobradar/internal/usecase/job"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Handler renders the dashboard pages.
type Handler struct {
	Jobs   jobUC.Service
	Store  *config.Store
	Logger *slog.Logger

	tmpl *template.Template
}

// NewHandler parses the embedded templates. Parse failures are a build
// defect, so this panics rather than returning an error.
func NewHandler(jobs jobUC.Service, store *config.Store, logger *slog.Logger) *Handler {
	funcs := template.FuncMap{
		"badge":   scoreBadge,
		"fmtTime": fmtTime,
	}
	tmpl := template.Must(template.New("dashboard").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
	return &Handler{
		Jobs:   jobs,
		Store:  store,
		Logger: logger,
		tmpl:   tmpl,
	}
}

// Register registers the dashboard routes.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.Handle("GET    /{$}", http.RedirectHandler("/jobs", http.StatusFound))
	mux.Handle("GET    /jobs", http.HandlerFunc(h.jobList))
	mux.Handle("GET    /jobs/", http.HandlerFunc(h.jobDetail))
	mux.Handle("GET    /stats", http.HandlerFunc(h.stats))
	mux.Handle("GET    /config", http.HandlerFunc(h.configPage))

	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(fmt.Sprintf("embedded static assets missing: %v", err))
	}
	mux.Handle("GET    /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
}

// scoreBadge maps a relevance score to a CSS badge class.
func scoreBadge(score int) string {
	switch {
	case score >= 8:
		return "badge-high"
	case score >= 6:
		return "badge-mid"
	default:
		return "badge-low"
	}
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}

type jobRow struct {
	Job        *entity.Job
	SourceName string
}

type jobListView struct {
	Title      string
	Rows       []jobRow
	Page       int
	TotalPages int
	PrevPage   int
	NextPage   int
	Status     string
	MinScore   string
}

func (h *Handler) jobList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page := 1
	if raw := q.Get("page"); raw != "" {
		if p, err := strconv.Atoi(raw); err == nil && p > 0 {
			page = p
		}
	}

	filters := repository.JobFilters{}
	status := q.Get("status")
	if status != "" {
		st := entity.JobStatus(status)
		if st.Valid() {
			filters.Status = &st
		}
	}
	minScore := q.Get("min_score")
	if minScore != "" {
		if v, err := strconv.Atoi(minScore); err == nil && v >= entity.MinScore && v <= entity.MaxScore {
			filters.MinScore = &v
		}
	}

	result, err := h.Jobs.ListPaginated(r.Context(), filters, pagination.Params{Page: page, Limit: 20})
	if err != nil {
		h.renderError(w, err)
		return
	}

	rows := make([]jobRow, 0, len(result.Data))
	for _, item := range result.Data {
		rows = append(rows, jobRow{Job: item.Job, SourceName: item.SourceName})
	}

	view := jobListView{
		Title:      "Postings",
		Rows:       rows,
		Page:       result.Pagination.Page,
		TotalPages: result.Pagination.TotalPages,
		PrevPage:   result.Pagination.Page - 1,
		NextPage:   result.Pagination.Page + 1,
		Status:     status,
		MinScore:   minScore,
	}
	h.render(w, "jobs.html", view)
}

type jobDetailView struct {
	Title      string
	Job        *entity.Job
	SourceName string
}

func (h *Handler) jobDetail(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ExtractID(r.URL.Path, "/jobs/")
	if err != nil {
		http.NotFound(w, r)
		return
	}

	job, sourceName, err := h.Jobs.GetWithSource(r.Context(), id)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	h.render(w, "job_detail.html", jobDetailView{
		Title:      job.Title,
		Job:        job,
		SourceName: sourceName,
	})
}

type histogramBar struct {
	Score   int
	Count   int64
	Percent int
}

type statsView struct {
	Title     string
	Total     int64
	ByStatus  []repository.StatusCount
	BySource  []repository.SourceCount
	Histogram []histogramBar
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Jobs.GetStats(r.Context())
	if err != nil {
		h.renderError(w, err)
		return
	}

	var maxCount int64 = 1
	for _, c := range stats.ScoreHistogram {
		if c > maxCount {
			maxCount = c
		}
	}
	bars := make([]histogramBar, 0, entity.MaxScore+1)
	for score := entity.MinScore; score <= entity.MaxScore; score++ {
		count := stats.ScoreHistogram[score]
		bars = append(bars, histogramBar{
			Score:   score,
			Count:   count,
			Percent: int(count * 100 / maxCount),
		})
	}

	h.render(w, "stats.html", statsView{
		Title:     "Stats",
		Total:     stats.Total,
		ByStatus:  stats.ByStatus,
		BySource:  stats.BySource,
		Histogram: bars,
	})
}

type configView struct {
	Title  string
	Config config.AppConfig
}

func (h *Handler) configPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, "config.html", configView{
		Title:  "Config",
		Config: h.Store.Get(),
	})
}

func (h *Handler) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.ExecuteTemplate(w, name, data); err != nil {
		h.Logger.Error("template render failed",
			"template", name,
			"error", err.Error())
	}
}

func (h *Handler) renderError(w http.ResponseWriter, err error) {
	h.Logger.Error("dashboard page failed", "error", err.Error())
	http.Error(w, "internal error", http.StatusInternalServerError)
}
