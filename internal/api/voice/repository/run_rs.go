package voiceRepository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"VoiceIntent/internal/api/voice"
	"VoiceIntent/internal/entity"
	contextPkg "VoiceIntent/pkg/context"
)

type PipelineRunDB struct {
	ID                 sql.NullString  `db:"id"`
	UserID             sql.NullString  `db:"user_id"`
	SourceLanguage     sql.NullString  `db:"source_language"`
	PivotLanguage      sql.NullString  `db:"pivot_language"`
	Mode               sql.NullString  `db:"mode"`
	RecognitionStatus  sql.NullString  `db:"recognition_status"`
	CancellationReason sql.NullString  `db:"cancellation_reason"`
	ErrorCode          sql.NullString  `db:"error_code"`
	ErrorDetails       sql.NullString  `db:"error_details"`
	TopIntent          sql.NullString  `db:"top_intent"`
	Confidence         sql.NullFloat64 `db:"confidence"`
	EntityCount        sql.NullInt64   `db:"entity_count"`
	Destination        sql.NullString  `db:"destination"`
	Navigated          sql.NullBool    `db:"navigated"`
	FatalError         sql.NullString  `db:"fatal_error"`
	ArchiveURL         sql.NullString  `db:"archive_url"`
	DurationMs         sql.NullInt64   `db:"duration_ms"`
	CreatedAt          time.Time       `db:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at"`
}

func (r *runRepository) CreateRun(ctx context.Context, run entity.PipelineRun) error {
	requestID := contextPkg.GetRequestID(ctx)

	argsKV := map[string]interface{}{
		"id":                  run.ID,
		"user_id":             run.UserID,
		"source_language":     run.SourceLanguage,
		"pivot_language":      run.PivotLanguage,
		"mode":                run.Mode,
		"recognition_status":  run.RecognitionStatus,
		"cancellation_reason": nullString(run.CancellationReason),
		"error_code":          nullString(run.ErrorCode),
		"error_details":       nullString(run.ErrorDetails),
		"top_intent":          nullString(run.TopIntent),
		"confidence":          sql.NullFloat64{Float64: run.Confidence, Valid: run.TopIntent != ""},
		"entity_count":        run.EntityCount,
		"destination":         nullString(run.Destination),
		"navigated":           run.Navigated,
		"fatal_error":         nullString(run.FatalError),
		"archive_url":         nullString(run.ArchiveURL),
		"duration_ms":         run.DurationMs,
		"created_at":          run.CreatedAt,
		"updated_at":          run.UpdatedAt,
	}

	query, args, err := sqlx.Named(queryCreateRun, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for CreateRun")
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"run_id":     run.ID,
			"error":      err.Error(),
		}).Error("Database error when creating pipeline run")
		return err
	}

	return nil
}

func (r *runRepository) GetRunByID(ctx context.Context, id string) (entity.PipelineRun, error) {
	requestID := contextPkg.GetRequestID(ctx)
	var runDB PipelineRunDB

	query, args, err := sqlx.Named(queryGetRunByID, map[string]interface{}{"id": id})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetRunByID named query preparation err")
		return entity.PipelineRun{}, err
	}
	query = r.q.Rebind(query)

	if err := r.q.QueryRowxContext(ctx, query, args...).StructScan(&runDB); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"run_id":     id,
			}).Warn("GetRunByID no rows found")
			return entity.PipelineRun{}, voice.ErrRunNotFound
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetRunByID execution err")
		return entity.PipelineRun{}, err
	}

	return r.makeRun(runDB), nil
}

func (r *runRepository) GetRunsByUserID(ctx context.Context, userID string, limit, offset int) ([]entity.PipelineRun, int, error) {
	requestID := contextPkg.GetRequestID(ctx)
	var total int

	countQuery, countArgs, err := sqlx.Named(queryCountRunsByUserID, map[string]interface{}{"user_id": userID})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("CountRunsByUserID named query preparation err")
		return nil, 0, err
	}
	countQuery = r.q.Rebind(countQuery)

	if err := r.q.QueryRowxContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("CountRunsByUserID execution err")
		return nil, 0, err
	}

	argsKV := map[string]interface{}{
		"user_id": userID,
		"limit":   limit,
		"offset":  offset,
	}

	query, args, err := sqlx.Named(queryGetRunsByUserID, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetRunsByUserID named query preparation err")
		return nil, 0, err
	}
	query = r.q.Rebind(query)

	var runsDB []PipelineRunDB
	if err := r.q.SelectContext(ctx, &runsDB, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetRunsByUserID execution err")
		return nil, 0, err
	}

	runs := make([]entity.PipelineRun, 0, len(runsDB))
	for _, runDB := range runsDB {
		runs = append(runs, r.makeRun(runDB))
	}

	return runs, total, nil
}

func (r *runRepository) DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	requestID := contextPkg.GetRequestID(ctx)

	query, args, err := sqlx.Named(queryDeleteRunsBefore, map[string]interface{}{"cutoff": cutoff})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("DeleteRunsBefore named query preparation err")
		return 0, err
	}
	query = r.q.Rebind(query)

	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("DeleteRunsBefore execution err")
		return 0, err
	}

	return res.RowsAffected()
}

func (r *runRepository) makeRun(runDB PipelineRunDB) entity.PipelineRun {
	return entity.PipelineRun{
		ID:                 runDB.ID.String,
		UserID:             runDB.UserID.String,
		SourceLanguage:     runDB.SourceLanguage.String,
		PivotLanguage:      runDB.PivotLanguage.String,
		Mode:               runDB.Mode.String,
		RecognitionStatus:  runDB.RecognitionStatus.String,
		CancellationReason: runDB.CancellationReason.String,
		ErrorCode:          runDB.ErrorCode.String,
		ErrorDetails:       runDB.ErrorDetails.String,
		TopIntent:          runDB.TopIntent.String,
		Confidence:         runDB.Confidence.Float64,
		EntityCount:        int(runDB.EntityCount.Int64),
		Destination:        runDB.Destination.String,
		Navigated:          runDB.Navigated.Bool,
		FatalError:         runDB.FatalError.String,
		ArchiveURL:         runDB.ArchiveURL.String,
		DurationMs:         runDB.DurationMs.Int64,
		CreatedAt:          runDB.CreatedAt,
		UpdatedAt:          runDB.UpdatedAt,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
