package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sagehouse/reviews-bot/internal/alerts"
	"github.com/sagehouse/reviews-bot/internal/archive"
	"github.com/sagehouse/reviews-bot/internal/config"
	"github.com/sagehouse/reviews-bot/internal/models"
	"github.com/sagehouse/reviews-bot/internal/sentiment"
	"github.com/sagehouse/reviews-bot/internal/sources"
	"github.com/sagehouse/reviews-bot/internal/store"
	"github.com/sagehouse/reviews-bot/internal/transport"
	"github.com/sirupsen/logrus"
)

// needsResponseSentiment is the sentiment score below which a review is
// flagged for response regardless of its rating.
const needsResponseSentiment = -0.3

// Service orchestrates full sync runs: fetch from each platform adapter,
// normalize and upsert reviews, record snapshots, and raise alerts.
type Service struct {
	config   *config.Config
	store    store.Store
	registry *sources.Registry
	scorer   *sentiment.Scorer
	alerts   *alerts.Service
	archiver archive.Archiver

	mu      sync.RWMutex
	lastRun *models.SyncSummary
}

// NewService creates a sync service and builds the adapter registry from the
// configured credentials. Platforms without credentials get no adapter and
// are skipped at sync time.
func NewService(cfg *config.Config, st store.Store, alertSvc *alerts.Service, archiver archive.Archiver) *Service {
	if archiver == nil {
		archiver = archive.Noop{}
	}

	service := &Service{
		config:   cfg,
		store:    st,
		registry: sources.NewRegistry(),
		scorer:   sentiment.NewScorer(cfg.SentimentAnalyzer),
		alerts:   alertSvc,
		archiver: archiver,
	}

	service.initializeSources()

	return service
}

func (s *Service) initializeSources() {
	timeout := time.Duration(s.config.RequestTimeoutSecs) * time.Second
	newGuard := func() *transport.Guard {
		// Each adapter gets its own limiter so one slow platform never
		// starves the others.
		return transport.NewGuard(s.config.RateLimitPerMinute, timeout)
	}

	if s.config.GooglePlacesAPIKey != "" && s.config.GooglePlaceID != "" {
		s.registry.Register(sources.NewGoogleSource(s.config.GooglePlacesAPIKey, s.config.GooglePlaceID, newGuard()))
	}
	if s.config.YelpAPIKey != "" && s.config.YelpBusinessID != "" {
		s.registry.Register(sources.NewYelpSource(s.config.YelpAPIKey, s.config.YelpBusinessID, newGuard()))
	}
	if s.config.FacebookToken != "" && s.config.FacebookPageID != "" {
		s.registry.Register(sources.NewFacebookSource(s.config.FacebookToken, s.config.FacebookPageID, newGuard()))
	}
	if s.config.MedicareProviderID != "" {
		s.registry.Register(sources.NewMedicareSource(s.config.MedicareProviderID, newGuard()))
	}
	if s.config.CaringURL != "" {
		s.registry.Register(sources.NewCaringSource(s.config.CaringURL, newGuard()))
	}
	if s.config.APlaceForMomURL != "" {
		s.registry.Register(sources.NewAPlaceForMomSource(s.config.APlaceForMomURL, newGuard()))
	}
	if s.config.SeniorAdvisorURL != "" {
		s.registry.Register(sources.NewSeniorAdvisorSource(s.config.SeniorAdvisorURL, newGuard()))
	}

	logrus.Infof("Initialized %d review source adapters: %v", len(s.registry.Names()), s.registry.Names())
}

// Registry exposes the adapter registry, mainly for status reporting.
func (s *Service) Registry() *sources.Registry {
	return s.registry
}

// EnsurePlatforms creates a platform row for every registered adapter that
// does not have one yet. Existing rows are left untouched.
func (s *Service) EnsurePlatforms() error {
	existing, err := s.store.ListActivePlatforms()
	if err != nil {
		return fmt.Errorf("failed to list platforms: %w", err)
	}

	known := make(map[string]bool, len(existing))
	for _, p := range existing {
		known[p.Name] = true
	}

	for _, name := range s.registry.Names() {
		if known[name] {
			continue
		}
		source, err := s.registry.ForPlatform(name)
		if err != nil {
			return err
		}
		platform := &models.Platform{
			Name:     name,
			APIType:  source.Kind(),
			IsActive: true,
		}
		if err := s.store.CreatePlatform(platform); err != nil {
			return fmt.Errorf("failed to create platform %s: %w", name, err)
		}
		logrus.Infof("Registered new platform %s", name)
	}

	return nil
}

// SyncAll syncs every active platform.
func (s *Service) SyncAll(ctx context.Context) (*models.SyncSummary, error) {
	platforms, err := s.store.ListActivePlatforms()
	if err != nil {
		return nil, fmt.Errorf("failed to list platforms: %w", err)
	}
	return s.syncPlatforms(ctx, platforms), nil
}

// SyncByIDs syncs only the named platforms. Unknown or inactive IDs are
// silently skipped.
func (s *Service) SyncByIDs(ctx context.Context, ids []uint) (*models.SyncSummary, error) {
	platforms, err := s.store.ListActivePlatformsByIDs(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list platforms: %w", err)
	}
	return s.syncPlatforms(ctx, platforms), nil
}

func (s *Service) syncPlatforms(ctx context.Context, platforms []models.Platform) *models.SyncSummary {
	start := time.Now()
	logrus.Infof("Starting sync run for %d platforms", len(platforms))

	resultsChan := make(chan models.SyncResult, len(platforms))
	sem := make(chan struct{}, s.maxConcurrency())
	var wg sync.WaitGroup

	for _, platform := range platforms {
		wg.Add(1)
		go func(p models.Platform) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			resultsChan <- s.SyncPlatform(ctx, &p)
		}(platform)
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	summary := &models.SyncSummary{
		SyncedAt:        start.UTC(),
		PlatformsSynced: len(platforms),
	}
	for result := range resultsChan {
		summary.Results = append(summary.Results, result)
		summary.TotalNewReviews += result.NewReviews
		summary.TotalUpdatedReviews += result.UpdatedReviews
	}

	s.mu.Lock()
	s.lastRun = summary
	s.mu.Unlock()

	logrus.Infof("Sync run completed in %v: %d new, %d updated reviews",
		time.Since(start), summary.TotalNewReviews, summary.TotalUpdatedReviews)

	return summary
}

// SyncPlatform runs one platform's full fetch-normalize-store cycle. Failures
// are reported in the result, never as a panic or partial write; reviews
// stored before a later error stay stored.
func (s *Service) SyncPlatform(ctx context.Context, platform *models.Platform) models.SyncResult {
	result := models.SyncResult{
		PlatformID:   platform.ID,
		PlatformName: platform.Name,
	}

	source, err := s.registry.ForPlatform(platform.Name)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	logrus.Infof("Syncing platform %s", platform.Name)
	fetched := source.FetchReviews(ctx)

	s.archiveResult(platform.Name, fetched)

	for _, review := range fetched.Reviews {
		created, err := s.upsertReview(platform, &review)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("review %s: %v", review.ExternalID, err))
			continue
		}
		if created {
			result.NewReviews++
		} else {
			result.UpdatedReviews++
		}
	}

	result.Errors = append(result.Errors, fetched.Errors...)

	if !fetched.Success {
		logrus.Warnf("Sync for %s did not succeed: %v", platform.Name, fetched.Errors)
		return result
	}

	// Snapshots are recorded only for successful fetches, even when nothing
	// changed. A snapshot built from a partial local view would manufacture
	// a rating drop on the next trend comparison.
	if err := s.recordSnapshot(platform, fetched, result.NewReviews); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("snapshot: %v", err))
	}

	result.Success = true
	if err := s.store.UpdatePlatformLastSync(platform.ID, time.Now().UTC()); err != nil {
		logrus.Errorf("Failed to update last sync for %s: %v", platform.Name, err)
	}

	return result
}

// upsertReview stores one normalized review, deduplicating on the platform
// and external ID pair. Returns true when a new row was created.
func (s *Service) upsertReview(platform *models.Platform, incoming *models.NormalizedReview) (bool, error) {
	existing, err := s.store.GetReviewByExternalID(platform.ID, incoming.ExternalID)
	if err != nil {
		return false, fmt.Errorf("lookup failed: %w", err)
	}

	scored := s.scorer.AnalyzeWithRating(incoming.ReviewText, incoming.Rating)
	needsResponse := scored.Score < needsResponseSentiment
	if incoming.Rating != nil && *incoming.Rating <= 3 {
		needsResponse = true
	}

	if existing != nil {
		existing.ReviewerName = incoming.ReviewerName
		existing.ReviewerProfileURL = incoming.ReviewerProfileURL
		existing.Rating = incoming.Rating
		existing.ReviewText = incoming.ReviewText
		existing.ReviewDate = incoming.ReviewDate
		existing.SentimentScore = scored.Score
		existing.SentimentLabel = scored.Label
		existing.NeedsResponse = needsResponse
		existing.RawJSON = incoming.RawJSON
		if err := s.store.UpdateReview(existing); err != nil {
			return false, fmt.Errorf("update failed: %w", err)
		}
		return false, nil
	}

	review := &models.Review{
		PlatformID:         platform.ID,
		ExternalReviewID:   incoming.ExternalID,
		ReviewerName:       incoming.ReviewerName,
		ReviewerProfileURL: incoming.ReviewerProfileURL,
		Rating:             incoming.Rating,
		ReviewText:         incoming.ReviewText,
		ReviewDate:         incoming.ReviewDate,
		SentimentScore:     scored.Score,
		SentimentLabel:     scored.Label,
		NeedsResponse:      needsResponse,
		RawJSON:            incoming.RawJSON,
	}
	if err := s.store.CreateReview(review); err != nil {
		return false, fmt.Errorf("insert failed: %w", err)
	}

	// Alerts fire on first sight only. Re-syncing the same review must
	// never alert twice.
	if s.alerts != nil {
		s.alerts.EvaluateReview(review, platform)
	}

	return true, nil
}

func (s *Service) recordSnapshot(platform *models.Platform, fetched *models.AdapterResult, newReviews int) error {
	stored, err := s.store.ListReviewsByPlatform(platform.ID)
	if err != nil {
		return fmt.Errorf("failed to load stored reviews: %w", err)
	}

	snapshot := &models.ReviewSnapshot{
		PlatformID:      platform.ID,
		SnapshotDate:    time.Now().UTC(),
		TotalReviews:    len(stored),
		NewReviewsCount: newReviews,
	}

	var ratingSum float64
	var ratingCount, responded int
	for _, review := range stored {
		switch review.SentimentLabel {
		case sentiment.LabelPositive:
			snapshot.PositiveCount++
		case sentiment.LabelNegative:
			snapshot.NegativeCount++
		default:
			snapshot.NeutralCount++
		}
		if review.Rating != nil {
			ratingSum += *review.Rating
			ratingCount++
		}
		if review.ResponseText != "" {
			responded++
		}
	}

	if ratingCount > 0 {
		avg := ratingSum / float64(ratingCount)
		snapshot.AverageRating = &avg
	}
	if len(stored) > 0 {
		rate := float64(responded) / float64(len(stored))
		snapshot.ResponseRate = &rate
	}

	// Source-reported aggregates cover the whole population, not just what
	// we fetched, so they win when present.
	if fetched.TotalCount != nil {
		snapshot.TotalReviews = *fetched.TotalCount
	}
	if fetched.AverageRating != nil {
		snapshot.AverageRating = fetched.AverageRating
	}

	if err := s.store.CreateSnapshot(snapshot); err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}

	return nil
}

func (s *Service) archiveResult(platformName string, fetched *models.AdapterResult) {
	data, err := archive.Marshal(fetched)
	if err != nil {
		logrus.Errorf("Failed to marshal payload for %s: %v", platformName, err)
		return
	}
	name := archive.ObjectName(platformName, time.Now())
	if err := s.archiver.Store(name, data); err != nil {
		logrus.Errorf("Failed to archive payload for %s: %v", platformName, err)
	}
}

func (s *Service) maxConcurrency() int {
	if s.config.MaxConcurrentPlatforms < 1 {
		return 1
	}
	return s.config.MaxConcurrentPlatforms
}

// LastRun returns the most recent sync summary, or nil before the first run.
func (s *Service) LastRun() *models.SyncSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRun
}
