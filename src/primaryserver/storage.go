package primaryserver

import (
	"fmt"

	"github.com/osutaiko/Pawnpulse/src/models"
	"github.com/osutaiko/Pawnpulse/src/review"
)

// SubmitReview parses and stores a game for review.
func (s *Server) SubmitReview(sub models.ReviewSubmission) (models.ReviewView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := fmt.Sprintf("review_%d", s.nextID)
	r, err := review.New(id, sub)
	if err != nil {
		return models.ReviewView{}, err
	}
	s.reviews[r.ID()] = r

	s.log.Info().Str("review", r.ID()).Int("plies", r.Plies()).Str("status", string(r.Status())).Msg("stored review")
	return r.View(), nil
}

// GetReview returns the current view of a stored review.
func (s *Server) GetReview(id string) (models.ReviewView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reviews[id]
	if !ok {
		return models.ReviewView{}, false
	}
	return r.View(), true
}

// NavigateReview moves a review's cursor and returns the new view together
// with the analysis request for the position now shown.
func (s *Server) NavigateReview(id, to string) (models.ReviewView, models.AnalysisRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reviews[id]
	if !ok {
		return models.ReviewView{}, models.AnalysisRequest{}, errReviewNotFound
	}
	if _, err := r.Navigate(to); err != nil {
		return models.ReviewView{}, models.AnalysisRequest{}, err
	}
	return r.View(), r.Request(), nil
}
