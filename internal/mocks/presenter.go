package mocks

import (
	"sync"

	"github.com/benmeehan/route-sentinel/internal/models"
)

// RecordingPresenter stores every presentation event it receives.
type RecordingPresenter struct {
	mu      sync.Mutex
	Routes  []models.RouteDrawn
	Banners []models.TripBanner
	Toasts  []models.Toast
	Ends    []models.TripEnded
	Marks   []models.AlertMarkers
}

func (p *RecordingPresenter) RouteDrawn(event models.RouteDrawn) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Routes = append(p.Routes, event)
	return nil
}

func (p *RecordingPresenter) TripBanner(banner models.TripBanner) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Banners = append(p.Banners, banner)
	return nil
}

func (p *RecordingPresenter) Toast(toast models.Toast) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Toasts = append(p.Toasts, toast)
	return nil
}

func (p *RecordingPresenter) TripEnded(event models.TripEnded) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Ends = append(p.Ends, event)
	return nil
}

func (p *RecordingPresenter) Markers(markers models.AlertMarkers) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Marks = append(p.Marks, markers)
	return nil
}

// ToastsOfKind returns the recorded toasts of the given kind.
func (p *RecordingPresenter) ToastsOfKind(kind models.ToastKind) []models.Toast {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.Toast
	for _, t := range p.Toasts {
		if t.Kind == kind {
			out = append(out, t)
		}
	}
	return out
}

// TripEnds returns a copy of the recorded trip end events.
func (p *RecordingPresenter) TripEnds() []models.TripEnded {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.TripEnded(nil), p.Ends...)
}

// RouteEvents returns a copy of the recorded route events.
func (p *RecordingPresenter) RouteEvents() []models.RouteDrawn {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.RouteDrawn(nil), p.Routes...)
}

// LastMarkers returns the most recent marker set.
func (p *RecordingPresenter) LastMarkers() models.AlertMarkers {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Marks) == 0 {
		return models.AlertMarkers{}
	}
	return p.Marks[len(p.Marks)-1]
}

// BannerEvents returns a copy of the recorded trip banners.
func (p *RecordingPresenter) BannerEvents() []models.TripBanner {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.TripBanner(nil), p.Banners...)
}
