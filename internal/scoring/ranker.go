package scoring

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shrimpsizemoose/mazarin/internal/models"
	"github.com/shrimpsizemoose/mazarin/internal/store"
)

var (
	// ErrLeaderboardHidden is returned to non-admin callers while the
	// visibility flag is off (or the settings row does not exist yet).
	ErrLeaderboardHidden = errors.New("leaderboard is hidden")
	// ErrScoreOutOfRange rejects assignments outside [0, 100].
	ErrScoreOutOfRange = errors.New("score out of range")
)

// Aggregate is the derived view of one student's submissions. TotalScore
// counts unscored submissions as 0 and is always computed fresh from the
// store, never read from a cached column.
type Aggregate struct {
	Submissions []models.Submission `json:"submissions"`
	Count       int                 `json:"count"`
	TotalScore  int                 `json:"total_score"`
}

type Ranker struct {
	store store.PortalStore
}

func NewRanker(s store.PortalStore) *Ranker {
	return &Ranker{store: s}
}

// Aggregate fetches a student's submissions, most recent upload first, and
// sums their scores. A student with no submissions gets {[], 0, 0}.
func (r *Ranker) Aggregate(studentID int64) (*Aggregate, error) {
	subs, err := r.store.ListStudentSubmissions(studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate submissions: %w", err)
	}

	agg := &Aggregate{
		Submissions: subs,
		Count:       len(subs),
	}
	for i := range subs {
		agg.TotalScore += subs[i].ScoreValue()
	}

	return agg, nil
}

// Leaderboard ranks every student with at least one submission by total
// score, descending. Ties break on ascending student id so the order is
// deterministic across stores. Admin callers bypass the visibility flag.
func (r *Ranker) Leaderboard(callerIsAdmin bool) ([]models.StudentRank, error) {
	if !callerIsAdmin {
		setting, err := r.store.GetSetting()
		if err != nil {
			return nil, err
		}
		if setting == nil || !setting.LeaderboardVisible {
			return nil, ErrLeaderboardHidden
		}
	}

	aggregates, err := r.store.FetchStudentAggregates()
	if err != nil {
		return nil, err
	}

	students, err := r.store.ListStudents()
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*models.Student, len(students))
	for i := range students {
		byID[students[i].ID] = &students[i]
	}

	ranks := make([]models.StudentRank, 0, len(aggregates))
	for _, agg := range aggregates {
		student, ok := byID[agg.StudentID]
		if !ok {
			// submission without a student row should not happen with the
			// FK in place; skip rather than rank a ghost
			continue
		}
		ranks = append(ranks, models.StudentRank{
			StudentID:       student.ID,
			Name:            student.Name,
			School:          student.School,
			ClassLabel:      student.ClassLabel,
			TotalScore:      agg.TotalScore,
			SubmissionCount: agg.SubmissionCount,
		})
	}

	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].TotalScore != ranks[j].TotalScore {
			return ranks[i].TotalScore > ranks[j].TotalScore
		}
		return ranks[i].StudentID < ranks[j].StudentID
	})

	return ranks, nil
}

// ToggleVisibility flips the leaderboard flag and reports the new state.
func (r *Ranker) ToggleVisibility() (bool, error) {
	return r.store.ToggleLeaderboard()
}

// Visibility reads the current flag; an absent settings row means hidden.
func (r *Ranker) Visibility() (bool, error) {
	setting, err := r.store.GetSetting()
	if err != nil {
		return false, err
	}
	return setting != nil && setting.LeaderboardVisible, nil
}

// AssignScore validates and persists an admin-assigned score for one
// submission. There is deliberately no way back to unscored: scores can
// only be overwritten with another value in range.
func (r *Ranker) AssignScore(submissionID string, score int) (*models.Submission, error) {
	assignment := models.ScoreAssignment{SubmissionID: submissionID, Score: score}
	if err := assignment.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %d", ErrScoreOutOfRange, score)
	}

	if err := r.store.SetSubmissionScore(submissionID, score); err != nil {
		return nil, err
	}

	sub, err := r.store.GetSubmission(submissionID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, store.ErrNotFound
	}
	return sub, nil
}
