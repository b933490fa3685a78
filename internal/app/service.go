package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"atelier/api/internal/auth"
	"atelier/api/internal/authpw"
	"atelier/api/internal/cache"
	"atelier/api/internal/config"
	"atelier/api/internal/normalize"
	"atelier/api/internal/rbac"
	"atelier/api/internal/search"
	"atelier/api/internal/session"
	"atelier/api/internal/store"
	"atelier/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	Role         string
	JTI          string
	ExpiresAt    time.Time
}

// rowStore is the opaque query surface of the hosted backend for the
// artwork domain. Row-level security is enforced server-side; the admin
// gate here is a UX optimization, not the authority boundary.
type rowStore interface {
	Select(ctx context.Context, table string, filter store.Filter, order *store.Order, span *store.Span) ([]store.Row, error)
	Insert(ctx context.Context, table string, values []store.Row) ([]store.Row, error)
	Update(ctx context.Context, table string, filter store.Filter, patch store.Row) ([]store.Row, error)
	Delete(ctx context.Context, table string, filter store.Filter) ([]store.Row, error)
}

type dataStore interface {
	GetUserByID(ctx context.Context, userID string) (store.User, error)
	IsAdminMember(ctx context.Context, userID string) (bool, error)
	ListPublishedPosts(ctx context.Context) ([]store.BlogPost, error)
	GetPostBySlug(ctx context.Context, slug string) (store.BlogPost, error)
	ListFAQ(ctx context.Context) ([]store.FAQEntry, error)
	InsertInquiry(ctx context.Context, inquiry store.Inquiry) error
	ListInquiries(ctx context.Context, limit int) ([]store.Inquiry, error)
	Ping(ctx context.Context) error
}

type sessionStore interface {
	Save(ctx context.Context, tokenHash string, record session.Record, expiresAt time.Time) error
	Lookup(ctx context.Context, tokenHash string) (session.Record, error)
	Revoke(ctx context.Context, tokenHash string) error
}

type objectStore interface {
	DeleteImage(ctx context.Context, url string) error
	Owns(url string) bool
}

type searchIndex interface {
	Search(q search.Query) search.Response
	IndexArtwork(record search.ArtworkRecord)
	IndexPost(record search.PostRecord)
	DeleteArtwork(id string)
}

type Service struct {
	cfg      config.Config
	rows     rowStore
	store    dataStore
	sessions sessionStore
	objects  objectStore
	search   searchIndex
	pw       *authpw.Service
	cache    *cache.ArtworkCache

	inflightMu sync.Mutex
	inflight   map[string]struct{}
}

func New(
	cfg config.Config,
	rows *store.Client,
	dataStore *store.PostgresStore,
	sessions *session.RedisStore,
	objects objectStore,
	searchService *search.Service,
	pw *authpw.Service,
) *Service {
	return &Service{
		cfg:      cfg,
		rows:     rows,
		store:    dataStore,
		sessions: sessions,
		objects:  objects,
		search:   searchService,
		pw:       pw,
		cache:    cache.New(),
		inflight: make(map[string]struct{}),
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Bootstrap warms the gallery list cache and seeds the search index. Errors
// are returned so the caller can log them; the service works without a warm
// start.
func (s *Service) Bootstrap(ctx context.Context) error {
	summaries, err := s.ListArtworks(ctx)
	if err != nil {
		return fmt.Errorf("warm artwork list: %w", err)
	}
	for _, summary := range summaries {
		if artwork, err := s.GetArtwork(ctx, summary.Slug); err == nil && artwork != nil {
			s.indexArtwork(*artwork)
		}
	}

	posts, err := s.store.ListPublishedPosts(ctx)
	if err != nil {
		return fmt.Errorf("list posts: %w", err)
	}
	for _, post := range posts {
		s.search.IndexPost(search.PostRecord{
			ID:        post.ID,
			Slug:      post.Slug,
			Title:     post.Title,
			Excerpt:   post.Excerpt,
			Body:      post.Body,
			Published: post.Published,
		})
	}
	return nil
}

// --- auth ---

func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	user, err := s.pw.SignIn(ctx, email, password)
	if err != nil {
		if err == authpw.ErrInvalidCredentials {
			return Session{}, errUnauthenticated()
		}
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	record, err := s.sessions.Lookup(ctx, tokenHash)
	if err != nil {
		return Session{}, errUnauthenticated()
	}
	// Rotate: the presented token is single-use.
	if err := s.sessions.Revoke(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	user, err := s.store.GetUserByID(ctx, record.UserID)
	if err != nil {
		return Session{}, errUnauthenticated()
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.TokenSecret), auth.Claims{
		Sub:  user.ID,
		Name: user.DisplayName,
		Role: string(rbac.Normalize(user.Role)),
		JTI:  jti,
		Exp:  expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	if err := s.sessions.Save(ctx, auth.HashToken(refresh), session.Record{
		UserID:      user.ID,
		DisplayName: user.DisplayName,
		Role:        user.Role,
	}, now.Add(s.cfg.SessionTTL)); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.DisplayName,
		Role:         string(rbac.Normalize(user.Role)),
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.TokenSecret), token)
	if err != nil {
		return Session{}, errUnauthenticated()
	}
	return Session{
		Token:     token,
		UserID:    claims.Sub,
		UserName:  claims.Name,
		Role:      claims.Role,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.sessions.Revoke(ctx, auth.HashToken(refreshToken))
}

// Can reports whether a role may perform an action. The HTTP layer uses
// it to reject obviously unauthorized calls before the service gate runs.
func (s *Service) Can(role string, action rbac.Action) bool {
	return rbac.Can(rbac.Normalize(role), action)
}

// requireAdmin is the gate in front of every mutation. It runs before any
// cache state is touched so a rejected call leaves the caches untouched.
func (s *Service) requireAdmin(ctx context.Context, sess Session) (Session, error) {
	if sess.UserID == "" {
		return Session{}, errUnauthenticated()
	}
	isAdmin, err := s.store.IsAdminMember(ctx, sess.UserID)
	if err != nil {
		return Session{}, fmt.Errorf("check admin membership: %w", err)
	}
	if !isAdmin {
		return Session{}, errForbidden("Admin membership required")
	}
	return sess, nil
}

// --- in-flight mutation guard ---

// beginMutation registers key as having a mutation in flight. A second
// mutation against the same key fails fast instead of racing the first at
// the network layer.
func (s *Service) beginMutation(key string) error {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	if _, busy := s.inflight[key]; busy {
		return errConflict("Another change to this artwork is still being saved")
	}
	s.inflight[key] = struct{}{}
	return nil
}

func (s *Service) endMutation(key string) {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	delete(s.inflight, key)
}

// --- gallery reads ---

// ListArtworks returns the summary list, serving from cache when populated.
// Read failures degrade to an empty list rather than an error so gallery
// views stay resilient to transient backend trouble. The degraded result
// is never cached; the next read retries.
func (s *Service) ListArtworks(ctx context.Context) ([]store.ArtworkSummary, error) {
	if cached, ok := s.cache.GetList(); ok {
		return cached, nil
	}

	rows, err := s.rows.Select(ctx, "artworks", nil, &store.Order{Column: "position"}, nil)
	if err != nil {
		log.Warn().Err(err).Msg("gallery: artwork list read failed, serving empty")
		return []store.ArtworkSummary{}, nil
	}
	imageRows, err := s.rows.Select(ctx, "artwork_images", nil, &store.Order{Column: "position"}, nil)
	if err != nil {
		log.Warn().Err(err).Msg("gallery: image read failed, serving list without covers")
		imageRows = nil
	}
	covers := coverByArtwork(imageRows)

	summaries := make([]store.ArtworkSummary, 0, len(rows))
	for _, row := range rows {
		summary, err := normalize.ArtworkSummary(row)
		if err != nil {
			log.Warn().Err(err).Msg("gallery: skipping malformed artwork row")
			continue
		}
		if summary.CoverURL == "" {
			summary.CoverURL = covers[summary.ID]
		}
		summaries = append(summaries, summary)
	}

	s.cache.SetList(summaries)
	return summaries, nil
}

// GetArtwork returns the full entity for a slug, or nil when absent. Read
// failures degrade to nil the same way an unknown slug does; nothing is
// cached on a degraded read.
func (s *Service) GetArtwork(ctx context.Context, slug string) (*store.Artwork, error) {
	if cached, ok := s.cache.GetDetail(slug); ok {
		return &cached, nil
	}

	rows, err := s.rows.Select(ctx, "artworks", store.Filter{"slug": slug}, nil, nil)
	if err != nil {
		log.Warn().Err(err).Str("slug", slug).Msg("gallery: artwork read failed, serving not-found")
		return nil, nil
	}
	if len(rows) == 0 {
		return nil, nil
	}

	artwork, err := normalize.Artwork(rows[0])
	if err != nil {
		log.Warn().Err(err).Str("slug", slug).Msg("gallery: malformed artwork row")
		return nil, nil
	}
	if err := s.attachRelations(ctx, &artwork); err != nil {
		log.Warn().Err(err).Str("slug", slug).Msg("gallery: relation read failed, serving not-found")
		return nil, nil
	}

	s.cache.SetDetail(artwork.Slug, artwork)
	return &artwork, nil
}

func (s *Service) attachRelations(ctx context.Context, artwork *store.Artwork) error {
	imageRows, err := s.rows.Select(ctx, "artwork_images", store.Filter{"artwork_id": artwork.ID}, &store.Order{Column: "position"}, nil)
	if err != nil {
		return err
	}
	for _, row := range imageRows {
		image, err := normalize.ArtworkImage(row)
		if err != nil {
			log.Warn().Err(err).Str("artwork", artwork.ID).Msg("gallery: skipping malformed image row")
			continue
		}
		artwork.Images = append(artwork.Images, image)
	}

	tagRows, err := s.rows.Select(ctx, "artwork_tags", store.Filter{"artwork_id": artwork.ID}, &store.Order{Column: "name"}, nil)
	if err != nil {
		return err
	}
	for _, row := range tagRows {
		tag, err := normalize.ArtworkTag(row)
		if err != nil {
			log.Warn().Err(err).Str("artwork", artwork.ID).Msg("gallery: skipping malformed tag row")
			continue
		}
		artwork.Tags = append(artwork.Tags, tag)
	}

	if artwork.CoverURL == "" {
		if cover, ok := artwork.CoverImage(); ok {
			artwork.CoverURL = cover.URL
		}
	}
	return nil
}

// coverByArtwork picks each artwork's representative image URL from raw
// image rows: the hero when flagged, else the first non-video by position.
func coverByArtwork(imageRows []store.Row) map[string]string {
	type candidate struct {
		url      string
		position int
		hero     bool
	}
	best := make(map[string]candidate)
	for _, row := range imageRows {
		image, err := normalize.ArtworkImage(row)
		if err != nil {
			continue
		}
		current, exists := best[image.ArtworkID]
		switch {
		case image.Hero:
			if !current.hero {
				best[image.ArtworkID] = candidate{url: image.URL, position: image.Position, hero: true}
			}
		case image.Kind == "video":
			// never a cover
		case !exists || (!current.hero && image.Position < current.position):
			best[image.ArtworkID] = candidate{url: image.URL, position: image.Position}
		}
	}
	covers := make(map[string]string, len(best))
	for id, c := range best {
		covers[id] = c.url
	}
	return covers
}

// --- blog, faq, inquiries, search ---

func (s *Service) ListPosts(ctx context.Context) ([]store.BlogPost, error) {
	return s.store.ListPublishedPosts(ctx)
}

// GetPost returns nil when the slug is unknown or unpublished.
func (s *Service) GetPost(ctx context.Context, slug string) (*store.BlogPost, error) {
	post, err := s.store.GetPostBySlug(ctx, slug)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

func (s *Service) ListFAQ(ctx context.Context) ([]store.FAQEntry, error) {
	return s.store.ListFAQ(ctx)
}

func (s *Service) Search(q search.Query) search.Response {
	return s.search.Search(q)
}

type InquiryInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

func (s *Service) SubmitInquiry(ctx context.Context, input InquiryInput, notify func(name, email, message string) error) error {
	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(input.Email)
	message := strings.TrimSpace(input.Message)
	if name == "" || message == "" {
		return errValidation("name and message are required", nil)
	}
	if email == "" || !strings.Contains(email, "@") {
		return errValidation("a valid email is required", nil)
	}

	inquiry := store.Inquiry{
		ID:      util.NewID("inq"),
		Name:    name,
		Email:   email,
		Message: message,
	}
	if err := s.store.InsertInquiry(ctx, inquiry); err != nil {
		return err
	}
	if notify != nil {
		if err := notify(name, email, message); err != nil {
			log.Warn().Err(err).Msg("inquiry: notification email failed")
		}
	}
	return nil
}

func (s *Service) ListInquiries(ctx context.Context, sess Session, limit int) ([]store.Inquiry, error) {
	if _, err := s.requireAdmin(ctx, sess); err != nil {
		return nil, err
	}
	return s.store.ListInquiries(ctx, limit)
}
