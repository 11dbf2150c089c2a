package student

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/deloai/campus/core"
)

// Per-record outcome statuses.
const (
	StatusCreated            = "created"
	StatusCreatedEmailFailed = "created_email_failed"
	StatusUpdated            = "updated"
	StatusSkipped            = "skipped"
	StatusError              = "error"
)

type (
	// ItemResult is the outcome of one record in a bulk operation. A bad
	// record never aborts the batch; it only produces its own result.
	ItemResult struct {
		Index     int                `json:"index"`
		Status    string             `json:"status"`
		Message   string             `json:"message,omitempty"`
		StudentID primitive.ObjectID `json:"student_id,omitempty"`
		Email     string             `json:"email,omitempty"`
	}

	BulkResult struct {
		CreatedCount  int          `json:"created_count"`
		UpdatedCount  int          `json:"updated_count"`
		TotalReceived int          `json:"total_received"`
		Results       []ItemResult `json:"results"`
	}
)

// HasFailures reports whether any record ended in an error or a
// created-but-not-notified state.
func (r BulkResult) HasFailures() bool {
	for _, res := range r.Results {
		if res.Status == StatusError || res.Status == StatusCreatedEmailFailed {
			return true
		}
	}
	return false
}

// BulkCreate creates one student per record, scoped to the given college.
// Records missing the mandatory name/email fields are skipped; uniqueness
// conflicts are reported per record. Each created student gets a generated
// credential delivered by email; a delivery failure downgrades the record's
// status to created_email_failed without undoing the creation.
func (svc *Service) BulkCreate(ctx context.Context, collegeID primitive.ObjectID, items []interface{}) (BulkResult, error) {
	if len(items) == 0 {
		return BulkResult{}, core.NewValidationError(errors.New("no students provided"))
	}
	col, err := svc.colleges.GetCollegeByID(ctx, collegeID)
	if err != nil {
		return BulkResult{}, err
	}

	result := BulkResult{TotalReceived: len(items), Results: make([]ItemResult, 0, len(items))}
	for idx, item := range items {
		record, ok := item.(map[string]interface{})
		if !ok {
			result.Results = append(result.Results, ItemResult{
				Index: idx, Status: StatusError, Message: "invalid item (expected an object)",
			})
			continue
		}
		result.Results = append(result.Results, svc.createOne(ctx, idx, collegeID, col.Name, record, &result.CreatedCount))
	}
	return result, nil
}

// BulkUpsert reconciles a batch of records against existing students matched
// on matchKey within the college: matched records get a partial update of the
// present allow-listed fields; unmatched records are created as in
// BulkCreate. The batch never aborts early.
func (svc *Service) BulkUpsert(ctx context.Context, collegeID primitive.ObjectID, matchKey MatchKey, items []interface{}) (BulkResult, error) {
	if !matchKey.Valid() {
		return BulkResult{}, core.NewValidationError(
			fmt.Errorf("matchKey must be one of %q, %q, %q", MatchEmail, MatchUSN, MatchEnrollment),
			core.FieldError{Field: "primary_field", Error: "unsupported match key"})
	}
	if len(items) == 0 {
		return BulkResult{}, core.NewValidationError(errors.New("no students provided"))
	}
	col, err := svc.colleges.GetCollegeByID(ctx, collegeID)
	if err != nil {
		return BulkResult{}, err
	}

	result := BulkResult{TotalReceived: len(items), Results: make([]ItemResult, 0, len(items))}
	for idx, item := range items {
		record, ok := item.(map[string]interface{})
		if !ok {
			result.Results = append(result.Results, ItemResult{
				Index: idx, Status: StatusError, Message: "invalid item (expected an object)",
			})
			continue
		}
		result.Results = append(result.Results, svc.upsertOne(ctx, idx, collegeID, col.Name, matchKey, record, &result))
	}
	return result, nil
}

func (svc *Service) upsertOne(
	ctx context.Context,
	idx int,
	collegeID primitive.ObjectID,
	collegeName string,
	matchKey MatchKey,
	record map[string]interface{},
	result *BulkResult,
) ItemResult {
	keyVal, ok := stringValue(record[string(matchKey)])
	if !ok {
		return ItemResult{
			Index: idx, Status: StatusSkipped,
			Message: fmt.Sprintf("missing primary field %q", matchKey),
		}
	}
	if matchKey == MatchEmail {
		keyVal = core.CleanString(keyVal, true /* lower */)
	}

	existing, err := svc.repo.FindStudentByKey(ctx, collegeID, matchKey, keyVal)
	switch {
	case err == nil:
		// matched: partial update of present fields, match key excluded
		fields, fieldErr := collectUpdates(record, matchKey)
		if fieldErr != nil {
			return ItemResult{Index: idx, Status: StatusError, Message: fieldErr.Error()}
		}
		if len(fields) == 0 {
			return ItemResult{Index: idx, Status: StatusSkipped, Message: "no updatable fields present"}
		}
		if err = svc.repo.UpdateStudentFields(ctx, existing.ID, fields); err != nil {
			if isUniquenessErr(err) {
				return ItemResult{Index: idx, Status: StatusError, Message: fmt.Sprintf("unique constraint error during update: %v", err)}
			}
			return ItemResult{Index: idx, Status: StatusError, Message: err.Error()}
		}
		result.UpdatedCount++
		return ItemResult{Index: idx, Status: StatusUpdated, StudentID: existing.ID, Email: existing.Email}

	case errors.Is(err, ErrNotFound):
		return svc.createOne(ctx, idx, collegeID, collegeName, record, &result.CreatedCount)

	default:
		return ItemResult{Index: idx, Status: StatusError, Message: err.Error()}
	}
}

func (svc *Service) createOne(
	ctx context.Context,
	idx int,
	collegeID primitive.ObjectID,
	collegeName string,
	record map[string]interface{},
	createdCount *int,
) ItemResult {
	name, nameOK := stringValue(record["name"])
	email, emailOK := stringValue(record["email"])
	if !nameOK || !emailOK {
		return ItemResult{
			Index: idx, Status: StatusSkipped,
			Message: "missing required field(s): name and email are required",
		}
	}

	now := time.Now().UTC()
	st := Student{
		Name:           name,
		Email:          core.CleanString(email, true /* lower */),
		College:        collegeID,
		FirstTimeLogin: true,
		IsActive:       true,
		DateJoined:     now,
	}
	for _, key := range updatableFields {
		val, present := record[key]
		if !present || val == nil || key == "name" || key == "email" {
			continue
		}
		if err := applyField(&st, key, val); err != nil {
			return ItemResult{Index: idx, Status: StatusError, Message: err.Error()}
		}
	}

	pwd := core.GeneratePassword(12)
	if err := st.SetPassword(pwd); err != nil {
		return ItemResult{Index: idx, Status: StatusError, Message: err.Error()}
	}

	st, err := svc.repo.CreateStudent(ctx, st)
	if err != nil {
		if isUniquenessErr(err) {
			return ItemResult{Index: idx, Status: StatusError, Message: fmt.Sprintf("unique constraint error: %v", err)}
		}
		return ItemResult{Index: idx, Status: StatusError, Message: err.Error()}
	}
	*createdCount++

	if mailErr := svc.mailSvc.SendMessage(ctx, credentialsEmail(st, pwd, collegeName)); mailErr != nil {
		svc.logger.Warn(fmt.Sprintf("student %s created but credentials email failed", st.Email), mailErr)
		return ItemResult{
			Index: idx, Status: StatusCreatedEmailFailed,
			Message:   fmt.Sprintf("student created but email sending failed: %v", mailErr),
			StudentID: st.ID, Email: st.Email,
		}
	}
	return ItemResult{Index: idx, Status: StatusCreated, StudentID: st.ID, Email: st.Email}
}

// collectUpdates filters a record down to the allow-listed updatable fields,
// excluding the match key, and normalizes values for persistence.
func collectUpdates(record map[string]interface{}, matchKey MatchKey) (map[string]interface{}, error) {
	fields := make(map[string]interface{})
	for _, key := range updatableFields {
		if key == string(matchKey) {
			continue
		}
		val, present := record[key]
		if !present || val == nil {
			continue
		}
		// run the value through a throwaway Student to validate its shape
		var scratch Student
		if err := applyField(&scratch, key, val); err != nil {
			return nil, err
		}
		fields[key] = normalizeField(&scratch, key, val)
	}
	return fields, nil
}

// normalizeField returns the typed value produced by applyField so storage
// backends receive well-typed data rather than raw JSON values.
func normalizeField(st *Student, key string, raw interface{}) interface{} {
	switch key {
	case "date_of_birth":
		return st.DateOfBirth
	case "email":
		return st.Email
	case "year_of_study":
		return st.YearOfStudy
	case "semester":
		return st.Semester
	case "cgpa":
		return st.CGPA
	}
	return raw
}

func isUniquenessErr(err error) bool {
	return errors.Is(err, ErrEmailExists) || errors.Is(err, ErrUSNExists) || errors.Is(err, ErrEnrollmentExists)
}
