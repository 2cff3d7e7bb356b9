package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/flock/pkg/humanize"
)

// inputSurface is the slice of a page a session drives. Satisfied by the
// playwright adapter in production and by doubles in tests.
type inputSurface interface {
	MouseMove(x, y float64) error
	MouseClick(x, y float64) error
	PressKey(key string) error
	InsertText(text string) error
	Wheel(deltaX, deltaY float64) error
	SelectorBox(selector string) (x, y float64, err error)
	Content() (string, error)
	URL() string
	Goto(url string) error
}

// Session wraps one attached remote page with humanized interaction
// primitives. All operations funnel pointer, keyboard, and wheel events
// through the humanize engine so the activity stream resembles a person.
type Session struct {
	ProfileID string
	Endpoint  string

	mu       sync.Mutex
	remote   playwright.Browser
	input    inputSurface
	human    *humanize.Engine
	pointer  humanize.Point
	attached time.Time
	lastUsed time.Time
}

func newSession(profileID, endpoint string, remote playwright.Browser, page playwright.Page, human *humanize.Engine) *Session {
	now := time.Now()
	return &Session{
		ProfileID: profileID,
		Endpoint:  endpoint,
		remote:    remote,
		input:     &playwrightSurface{page: page},
		human:     human,
		attached:  now,
		lastUsed:  now,
	}
}

func (s *Session) close() error {
	if s.remote == nil {
		return nil
	}
	return s.remote.Close()
}

func (s *Session) info() AttachmentInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return AttachmentInfo{
		ProfileID:  s.ProfileID,
		Endpoint:   s.Endpoint,
		CurrentURL: s.input.URL(),
		AttachedAt: s.attached,
		LastUsedAt: s.lastUsed,
	}
}

func (s *Session) touch() {
	s.lastUsed = time.Now()
}

// Navigate loads url in the attached page.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.input.Goto(url); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// MoveTo walks the pointer to (x, y) along a curved path with eased
// per-step pauses, starting from wherever the previous operation left it.
func (s *Session) MoveTo(ctx context.Context, x, y float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.moveLocked(ctx, humanize.Point{X: x, Y: y})
}

func (s *Session) moveLocked(ctx context.Context, to humanize.Point) error {
	s.touch()

	path := s.human.PointerPath(s.pointer, to)
	for {
		step, ok := path.Next()
		if !ok {
			break
		}
		if err := s.input.MouseMove(step.Pos.X, step.Pos.Y); err != nil {
			return fmt.Errorf("pointer move failed: %w", err)
		}
		s.pointer = step.Pos
		if err := s.human.Delay(ctx, step.Pause, step.Pause); err != nil {
			return err
		}
	}
	return nil
}

// ClickAt moves the pointer to (x, y) and clicks after a short settle
// pause.
func (s *Session) ClickAt(ctx context.Context, x, y float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.moveLocked(ctx, humanize.Point{X: x, Y: y}); err != nil {
		return err
	}
	if err := s.human.Delay(ctx, 60*time.Millisecond, 220*time.Millisecond); err != nil {
		return err
	}
	if err := s.input.MouseClick(x, y); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

// Click locates the element under selector and clicks its center the way
// ClickAt does.
func (s *Session) Click(ctx context.Context, selector string) error {
	s.mu.Lock()
	x, y, err := s.input.SelectorBox(selector)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("locate %q: %w", selector, err)
	}
	return s.ClickAt(ctx, x, y)
}

// TypeOptions tunes Type's keystroke generation.
type TypeOptions struct {
	MinKeyDelay time.Duration
	MaxKeyDelay time.Duration
	TypoChance  float64
}

func (o *TypeOptions) withDefaults() TypeOptions {
	out := TypeOptions{
		MinKeyDelay: 45 * time.Millisecond,
		MaxKeyDelay: 160 * time.Millisecond,
		TypoChance:  0.04,
	}
	if o == nil {
		return out
	}
	if o.MinKeyDelay > 0 {
		out.MinKeyDelay = o.MinKeyDelay
	}
	if o.MaxKeyDelay > 0 {
		out.MaxKeyDelay = o.MaxKeyDelay
	}
	if o.TypoChance >= 0 {
		out.TypoChance = o.TypoChance
	}
	return out
}

// Type clicks the element under selector and types text keystroke by
// keystroke, with occasional corrected typos.
func (s *Session) Type(ctx context.Context, selector, text string, opts *TypeOptions) error {
	if err := s.Click(ctx, selector); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	o := opts.withDefaults()
	for _, key := range s.human.TypeText(text, o.MinKeyDelay, o.MaxKeyDelay, o.TypoChance) {
		if err := s.human.Delay(ctx, key.Pause, key.Pause); err != nil {
			return err
		}
		if key.Backspace {
			if err := s.input.PressKey("Backspace"); err != nil {
				return fmt.Errorf("keystroke failed: %w", err)
			}
			continue
		}
		if err := s.input.InsertText(string(key.Rune)); err != nil {
			return fmt.Errorf("keystroke failed: %w", err)
		}
	}
	return nil
}

// ScrollJitter applies one small randomized scroll displacement.
func (s *Session) ScrollJitter(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if err := ctx.Err(); err != nil {
		return err
	}
	jitter := s.human.ScrollJitter()
	if err := s.input.Wheel(float64(jitter.DeltaX), float64(jitter.DeltaY)); err != nil {
		return fmt.Errorf("scroll failed: %w", err)
	}
	return nil
}

// Page is what Read saw on the attached tab.
type Page struct {
	Title string
	Text  string
}

// Read extracts the page's title and visible text, then lingers on the
// page for total, drifting the scroll position the way an idle reader
// does.
func (s *Session) Read(ctx context.Context, total time.Duration) (Page, error) {
	s.mu.Lock()
	s.touch()
	raw, err := s.input.Content()
	s.mu.Unlock()
	if err != nil {
		return Page{}, fmt.Errorf("content extraction failed: %w", err)
	}

	text, err := pageText(raw)
	if err != nil {
		return Page{}, err
	}
	title, err := pageTitle(raw)
	if err != nil {
		return Page{}, err
	}
	page := Page{Title: title, Text: text}

	err = s.human.SimulateReading(ctx, total, func(jitter humanize.Scroll) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.input.Wheel(float64(jitter.DeltaX), float64(jitter.DeltaY))
	})
	if err != nil {
		return page, err
	}
	return page, nil
}

// playwrightSurface adapts a playwright page to the inputSurface the
// session drives.
type playwrightSurface struct {
	page playwright.Page
}

func (p *playwrightSurface) MouseMove(x, y float64) error {
	return p.page.Mouse().Move(x, y)
}

func (p *playwrightSurface) MouseClick(x, y float64) error {
	return p.page.Mouse().Click(x, y)
}

func (p *playwrightSurface) PressKey(key string) error {
	return p.page.Keyboard().Press(key)
}

func (p *playwrightSurface) InsertText(text string) error {
	return p.page.Keyboard().InsertText(text)
}

func (p *playwrightSurface) Wheel(deltaX, deltaY float64) error {
	return p.page.Mouse().Wheel(deltaX, deltaY)
}

func (p *playwrightSurface) SelectorBox(selector string) (float64, float64, error) {
	box, err := p.page.Locator(selector).BoundingBox()
	if err != nil {
		return 0, 0, err
	}
	if box == nil {
		return 0, 0, fmt.Errorf("no element found matching selector: %s", selector)
	}
	return box.X + box.Width/2, box.Y + box.Height/2, nil
}

func (p *playwrightSurface) Content() (string, error) {
	return p.page.Content()
}

func (p *playwrightSurface) URL() string {
	return p.page.URL()
}

func (p *playwrightSurface) Goto(url string) error {
	_, err := p.page.Goto(url)
	return err
}
