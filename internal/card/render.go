package card

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"math"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/dukerupert/kidsched/internal/config"
	"github.com/dukerupert/kidsched/internal/model"
)

//go:embed templates/*.html templates/*.css
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"query": url.QueryEscape,
}).ParseFS(templateFS, "templates/*.html"))

var styles = mustReadStyles()

func mustReadStyles() template.CSS {
	b, err := templateFS.ReadFile("templates/card.css")
	if err != nil {
		panic(err)
	}
	return template.CSS(b)
}

const (
	previewLimit = 3
	// ringCircumference is 2πr for the r=54 progress ring.
	ringCircumference = 339.292
)

type viewData struct {
	ID               string
	Base             string
	Styles           template.CSS
	Theme            string
	EntityMissing    bool
	Title            string
	ShowBack         bool
	ShowWeeklyToggle bool
	Notice           string
	Mode             string
	Daily            *dailyView
	Weekly           *weeklyView
	Routine          *routineView
}

type dailyView struct {
	Next     *nextRoutineView
	Routines []routineCardView
}

type nextRoutineView struct {
	Title     string
	StartTime string
}

type routineCardView struct {
	ID           string
	Title        string
	ShowTime     bool
	StartTime    string
	EndTime      string
	IsCurrent    bool
	IsComplete   bool
	ShowProgress bool
	Percent      string
	Completed    int
	Total        int
	Preview      []taskView
	More         int
}

type taskView struct {
	RoutineID string
	Index     int
	Title     string
	Completed bool
	Image     string
	Duration  string
}

type weeklyView struct {
	Days []dayView
}

type dayView struct {
	Date      string
	Name      string
	ShortDate string
	IsToday   bool
	Routines  []weeklyRoutineView
}

type weeklyRoutineView struct {
	ID        string
	StartTime string
	Title     string
	TaskCount int
}

type routineView struct {
	Found        bool
	ID           string
	ShowProgress bool
	ShowImages   bool
	Completed    int
	Total        int
	DashOffset   string
	IsComplete   bool
	Tasks        []taskView
}

// Render produces the card markup for the current host state and view
// state. A pending notice is rendered once and then cleared.
func (c *Card) Render() (template.HTML, error) {
	c.mu.Lock()
	cfg := c.cfg
	view := c.view
	c.view.Notice = ""
	c.mu.Unlock()

	data := c.buildView(cfg, view)

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "card", data); err != nil {
		return "", fmt.Errorf("render card: %w", err)
	}
	return template.HTML(buf.String()), nil
}

func (c *Card) buildView(cfg config.CardConfig, view model.ViewState) viewData {
	data := viewData{
		ID:     c.opts.ID,
		Base:   c.opts.Base,
		Styles: styles,
		Theme:  cfg.Theme,
		Mode:   string(view.Mode),
	}

	entity, ok := c.host.State(cfg.Entity)
	if !ok {
		data.EntityMissing = true
		return data
	}

	data.Title = title(cfg, view)
	data.ShowBack = view.Mode != model.ViewDaily
	data.ShowWeeklyToggle = view.Mode == model.ViewDaily
	data.Notice = view.Notice

	switch view.Mode {
	case model.ViewWeekly:
		var schedule model.WeeklySchedule
		if weekly, ok := c.host.State(config.WeeklyEntityID(cfg.Entity)); ok {
			schedule = weekly.Weekly().WeeklySchedule
		}
		data.Weekly = c.buildWeekly(schedule)
	case model.ViewRoutine:
		data.Routine = c.buildRoutine(cfg, view.SelectedRoutine)
	default:
		data.Daily = c.buildDaily(cfg, entity.Daily())
	}
	return data
}

func title(cfg config.CardConfig, view model.ViewState) string {
	if view.Mode == model.ViewRoutine && view.SelectedRoutine != nil {
		return view.SelectedRoutine.Title
	}
	if view.Mode == model.ViewWeekly {
		return "This Week"
	}
	return cfg.Title
}

func (c *Card) buildDaily(cfg config.CardConfig, attrs model.DailyAttributes) *dailyView {
	dv := &dailyView{}

	if attrs.NextRoutine != nil && attrs.CurrentRoutine == nil {
		dv.Next = &nextRoutineView{
			Title:     attrs.NextRoutine.Title,
			StartTime: c.formatTime(attrs.NextRoutine.StartTime),
		}
	}

	for _, r := range attrs.Routines {
		rc := routineCardView{
			ID:           r.ID,
			Title:        r.Title,
			ShowTime:     cfg.ShowTime,
			StartTime:    c.formatTime(r.StartTime),
			EndTime:      c.formatTime(r.EndTime),
			IsCurrent:    r.IsCurrent,
			IsComplete:   r.IsComplete(),
			ShowProgress: cfg.ShowProgress,
			Percent:      formatNumber(r.ProgressPercent()),
			Completed:    r.Completed,
			Total:        r.Total,
		}
		for i, t := range r.Tasks {
			if i == previewLimit {
				rc.More = len(r.Tasks) - previewLimit
				break
			}
			rc.Preview = append(rc.Preview, newTaskView(r.ID, i, t))
		}
		dv.Routines = append(dv.Routines, rc)
	}
	return dv
}

func (c *Card) buildWeekly(schedule model.WeeklySchedule) *weeklyView {
	days := make([]string, 0, len(schedule))
	for day := range schedule {
		days = append(days, day)
	}
	// ISO dates sort chronologically as strings.
	sort.Strings(days)

	today := c.opts.Now().In(c.opts.Location).Format(time.DateOnly)

	wv := &weeklyView{}
	for _, day := range days {
		dv := dayView{
			Date:    day,
			Name:    day,
			IsToday: day == today,
		}
		if d, err := time.ParseInLocation(time.DateOnly, day, c.opts.Location); err == nil {
			dv.Name = d.Format("Monday")
			dv.ShortDate = d.Format("Jan 2")
		}
		for _, r := range schedule[day] {
			dv.Routines = append(dv.Routines, weeklyRoutineView{
				ID:        r.ID,
				StartTime: c.formatTime(r.StartTime),
				Title:     r.Title,
				TaskCount: r.TaskCount,
			})
		}
		wv.Days = append(wv.Days, dv)
	}
	return wv
}

func (c *Card) buildRoutine(cfg config.CardConfig, r *model.Routine) *routineView {
	if r == nil {
		return &routineView{}
	}

	percent := r.ProgressPercent()
	rv := &routineView{
		Found:        true,
		ID:           r.ID,
		ShowProgress: cfg.ShowProgress,
		ShowImages:   cfg.ShowImages,
		Completed:    r.Completed,
		Total:        r.Total,
		DashOffset:   formatNumber(ringCircumference - ringCircumference*percent/100),
		IsComplete:   r.IsComplete(),
	}
	for i, t := range r.Tasks {
		rv.Tasks = append(rv.Tasks, newTaskView(r.ID, i, t))
	}
	return rv
}

func newTaskView(routineID string, index int, t model.Task) taskView {
	tv := taskView{
		RoutineID: routineID,
		Index:     index,
		Title:     t.Title,
		Completed: t.Completed,
		Image:     t.Image,
	}
	if t.Duration > 0 {
		tv.Duration = formatNumber(t.Duration)
	}
	return tv
}

// formatTime renders a timestamp on a 12-hour clock in the viewer's location.
func (c *Card) formatTime(ts model.Timestamp) string {
	if ts.IsZero() {
		return ""
	}
	return ts.In(c.opts.Location).Format("3:04 PM")
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(math.Round(f*1000)/1000, 'f', -1, 64)
}
