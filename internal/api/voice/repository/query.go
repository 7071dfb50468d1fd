package voiceRepository

const (
	queryCreateRun = `
		INSERT INTO pipeline_runs (
			id, user_id, source_language, pivot_language, mode,
			recognition_status, cancellation_reason, error_code, error_details,
			top_intent, confidence, entity_count, destination, navigated,
			fatal_error, archive_url, duration_ms, created_at, updated_at
		) VALUES (
			:id, :user_id, :source_language, :pivot_language, :mode,
			:recognition_status, :cancellation_reason, :error_code, :error_details,
			:top_intent, :confidence, :entity_count, :destination, :navigated,
			:fatal_error, :archive_url, :duration_ms, :created_at, :updated_at
		)
	`

	queryGetRunByID = `
		SELECT
			id, user_id, source_language, pivot_language, mode,
			recognition_status, cancellation_reason, error_code, error_details,
			top_intent, confidence, entity_count, destination, navigated,
			fatal_error, archive_url, duration_ms, created_at, updated_at
		FROM pipeline_runs
		WHERE id = :id
	`

	queryGetRunsByUserID = `
		SELECT
			id, user_id, source_language, pivot_language, mode,
			recognition_status, cancellation_reason, error_code, error_details,
			top_intent, confidence, entity_count, destination, navigated,
			fatal_error, archive_url, duration_ms, created_at, updated_at
		FROM pipeline_runs
		WHERE user_id = :user_id
		ORDER BY created_at DESC
		LIMIT :limit OFFSET :offset
	`

	queryCountRunsByUserID = `
		SELECT COUNT(*)
		FROM pipeline_runs
		WHERE user_id = :user_id
	`

	queryDeleteRunsBefore = `
		DELETE FROM pipeline_runs
		WHERE created_at < :cutoff
	`
)
