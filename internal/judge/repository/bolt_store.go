package repository

import (
	"context"
	"encoding/json"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/Diwakar-Gupta/pepper/internal/judge/model"
	appErr "github.com/Diwakar-Gupta/pepper/pkg/errors"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketSubmissions = []byte("submissions")
	bucketByTime      = []byte("by_time")
	bucketByProblem   = []byte("by_problem")
)

// record is the stored form of a submission.
type record struct {
	ID           string                 `json:"id"`
	ProblemSlug  string                 `json:"problem_slug"`
	Language     string                 `json:"language"`
	CodeZ        []byte                 `json:"code_z,omitempty"`
	Status       model.SubmissionStatus `json:"status"`
	Timestamp    float64                `json:"timestamp"`
	Datetime     string                 `json:"datetime"`
	TestResults  json.RawMessage        `json:"test_results,omitempty"`
	ErrorMessage *string                `json:"error_message"`
}

func (r record) submission(includeCode bool) (model.Submission, error) {
	sub := model.Submission{
		ID:           r.ID,
		ProblemSlug:  r.ProblemSlug,
		Language:     r.Language,
		Status:       r.Status,
		Timestamp:    r.Timestamp,
		Datetime:     r.Datetime,
		TestResults:  r.TestResults,
		ErrorMessage: r.ErrorMessage,
	}
	if includeCode {
		code, err := decompressCode(r.CodeZ)
		if err != nil {
			return model.Submission{}, err
		}
		sub.Code = code
	}
	return sub, nil
}

// BoltStore is a SubmissionStore kept in a single bbolt file.
// bbolt serialises write transactions, so concurrent AddSubmission calls are safe.
type BoltStore struct {
	db    *bolt.DB
	now   func() time.Time
	newID func() string
}

var _ SubmissionStore = (*BoltStore)(nil)

// OpenBoltStore opens or creates the ledger at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, appErr.ValidationError("path", "required")
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.StoreError, "open submission store failed")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketSubmissions, bucketByTime, bucketByProblem} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, appErr.Wrapf(err, appErr.StoreError, "init submission buckets failed")
	}
	return &BoltStore{db: db, now: time.Now, newID: uuid.NewString}, nil
}

// AddSubmission appends a submission and returns its id.
func (s *BoltStore) AddSubmission(ctx context.Context, sub model.NewSubmission) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(sub.ProblemSlug) == "" {
		return "", appErr.New(appErr.ProblemSlugRequired)
	}
	if sub.Language == "" {
		return "", appErr.ValidationError("language", "required")
	}
	if !sub.Status.Valid() {
		return "", appErr.ValidationError("status", "must be success, failed or error")
	}

	now := s.now()
	rec := record{
		ID:          s.newID(),
		ProblemSlug: sub.ProblemSlug,
		Language:    sub.Language,
		Status:      sub.Status,
		Timestamp:   epochSeconds(now),
		Datetime:    isoLocal(now),
	}
	var err error
	if rec.CodeZ, err = compressCode(sub.Code); err != nil {
		return "", err
	}
	if sub.TestResults != nil {
		if rec.TestResults, err = json.Marshal(sub.TestResults); err != nil {
			return "", appErr.Wrapf(err, appErr.StoreError, "encode test results failed")
		}
	}
	if sub.ErrorMessage != "" {
		msg := sub.ErrorMessage
		rec.ErrorMessage = &msg
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return "", appErr.Wrapf(err, appErr.StoreError, "encode submission failed")
	}

	key := indexKey(now, rec.ID)
	err = s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketSubmissions).Put([]byte(rec.ID), data); err != nil {
			return err
		}
		if err := tx.Bucket(bucketByTime).Put(key, []byte(rec.ID)); err != nil {
			return err
		}
		problem, err := tx.Bucket(bucketByProblem).CreateBucketIfNotExists([]byte(rec.ProblemSlug))
		if err != nil {
			return err
		}
		return problem.Put(key, []byte(rec.ID))
	})
	if err != nil {
		return "", appErr.Wrapf(err, appErr.StoreError, "store submission failed")
	}
	return rec.ID, nil
}

// History lists submissions for one problem, newest first.
func (s *BoltStore) History(ctx context.Context, problemSlug string, includeCode bool) ([]model.Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(problemSlug) == "" {
		return nil, appErr.New(appErr.ProblemSlugRequired)
	}
	out := make([]model.Submission, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		problem := tx.Bucket(bucketByProblem).Bucket([]byte(problemSlug))
		if problem == nil {
			return nil
		}
		subs := tx.Bucket(bucketSubmissions)
		c := problem.Cursor()
		for k, id := c.Last(); k != nil; k, id = c.Prev() {
			rec, err := loadRecord(subs, id)
			if err != nil {
				return err
			}
			sub, err := rec.submission(includeCode)
			if err != nil {
				return err
			}
			out = append(out, sub)
		}
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr(err, "read history failed")
	}
	return out, nil
}

// CheckStatus scans each problem newest first. The first success or failed
// wins; a problem with only error outcomes is error.
func (s *BoltStore) CheckStatus(ctx context.Context, problemSlugs []string) (map[string]model.SubmissionStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[string]model.SubmissionStatus, len(problemSlugs))
	err := s.db.View(func(tx *bolt.Tx) error {
		subs := tx.Bucket(bucketSubmissions)
		byProblem := tx.Bucket(bucketByProblem)
		for _, slug := range problemSlugs {
			status := model.StatusNotAttempted
			if problem := byProblem.Bucket([]byte(slug)); problem != nil {
				c := problem.Cursor()
				for k, id := c.Last(); k != nil; k, id = c.Prev() {
					rec, err := loadRecord(subs, id)
					if err != nil {
						return err
					}
					if rec.Status == model.StatusSuccess || rec.Status == model.StatusFailed {
						status = rec.Status
						break
					}
					status = model.StatusError
				}
			}
			out[slug] = status
		}
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr(err, "check status failed")
	}
	return out, nil
}

// Stats aggregates every stored submission.
func (s *BoltStore) Stats(ctx context.Context) (model.Stats, error) {
	if err := ctx.Err(); err != nil {
		return model.Stats{}, err
	}
	var stats model.Stats
	attempted := mapset.NewThreadUnsafeSet[string]()
	solved := mapset.NewThreadUnsafeSet[string]()
	languages := mapset.NewThreadUnsafeSet[string]()

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSubmissions).ForEach(func(_, v []byte) error {
			var rec record
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			stats.TotalSubmissions++
			switch rec.Status {
			case model.StatusSuccess:
				stats.SuccessfulSubmissions++
				solved.Add(rec.ProblemSlug)
			case model.StatusFailed:
				stats.FailedSubmissions++
			case model.StatusError:
				stats.ErrorSubmissions++
			}
			attempted.Add(rec.ProblemSlug)
			languages.Add(rec.Language)
			return nil
		})
	})
	if err != nil {
		return model.Stats{}, wrapStoreErr(err, "compute stats failed")
	}

	stats.UniqueProblemsAttempted = attempted.Cardinality()
	stats.UniqueProblemsSolved = solved.Cardinality()
	stats.UniqueLanguages = languages.Cardinality()
	stats.LanguagesUsed = languages.ToSlice()
	sort.Strings(stats.LanguagesUsed)
	return stats, nil
}

// Recent returns at most limit submissions across all problems, newest first.
func (s *BoltStore) Recent(ctx context.Context, limit int) ([]model.RecentSubmission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]model.RecentSubmission, 0)
	if limit <= 0 {
		return out, nil
	}
	err := s.db.View(func(tx *bolt.Tx) error {
		subs := tx.Bucket(bucketSubmissions)
		c := tx.Bucket(bucketByTime).Cursor()
		for k, id := c.Last(); k != nil && len(out) < limit; k, id = c.Prev() {
			rec, err := loadRecord(subs, id)
			if err != nil {
				return err
			}
			out = append(out, model.RecentSubmission{
				ID:          rec.ID,
				ProblemSlug: rec.ProblemSlug,
				Language:    rec.Language,
				Status:      rec.Status,
				Timestamp:   rec.Timestamp,
				Datetime:    rec.Datetime,
			})
		}
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr(err, "read recent submissions failed")
	}
	return out, nil
}

// Backup dumps all submissions with their code, oldest first.
func (s *BoltStore) Backup(ctx context.Context, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	all := make([]model.Submission, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		subs := tx.Bucket(bucketSubmissions)
		return tx.Bucket(bucketByTime).ForEach(func(_, id []byte) error {
			rec, err := loadRecord(subs, id)
			if err != nil {
				return err
			}
			sub, err := rec.submission(true)
			if err != nil {
				return err
			}
			all = append(all, sub)
			return nil
		})
	})
	if err != nil {
		return wrapStoreErr(err, "read submissions failed")
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(all); err != nil {
		return appErr.Wrapf(err, appErr.StoreError, "write backup failed")
	}
	return nil
}

// Close releases the database file lock.
func (s *BoltStore) Close() error {
	if err := s.db.Close(); err != nil {
		return appErr.Wrapf(err, appErr.StoreError, "close submission store failed")
	}
	return nil
}

func loadRecord(subs *bolt.Bucket, id []byte) (record, error) {
	data := subs.Get(id)
	if data == nil {
		return record{}, appErr.Newf(appErr.SubmissionNotFound, "submission %s not found", string(id))
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return record{}, appErr.Wrapf(err, appErr.StoreError, "decode submission failed")
	}
	return rec, nil
}

func wrapStoreErr(err error, msg string) error {
	if appErr.GetCode(err) != appErr.InternalServerError {
		return err
	}
	return appErr.Wrapf(err, appErr.StoreError, "%s", msg)
}
