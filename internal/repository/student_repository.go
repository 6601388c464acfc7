package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/GuilhermeRVaz/sisgoe-api/internal/models"
)

// StudentRepository reads student records and their cockpit tabs.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters with a total count.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	baseQuery := `FROM students WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(full_name) LIKE $%d OR LOWER(email) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	allowedSorts := map[string]bool{
		"full_name":  true,
		"email":      true,
		"created_at": true,
		"updated_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}

	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT id, enrollment_id, full_name, email, active, created_at, updated_at %s ORDER BY %s %s LIMIT %d OFFSET %d", baseQuery, sortBy, sortOrder, pageSize, offset)

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}

	return students, total, nil
}

// FindByID fetches a student by identifier.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, enrollment_id, full_name, email, active, created_at, updated_at FROM students WHERE id = $1 LIMIT 1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

// FindPersonalData returns the personal data tab, or nil when absent.
func (r *StudentRepository) FindPersonalData(ctx context.Context, studentID string) (*models.PersonalData, error) {
	const query = `SELECT id, student_id, name, rg, cpf, birth_date, mother_name, father_name, nationality, naturalness, race_color, sex, created_at, updated_at
FROM personal_data WHERE student_id = $1 LIMIT 1`
	var data models.PersonalData
	if err := r.db.GetContext(ctx, &data, query, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find personal data: %w", err)
	}
	return &data, nil
}

// FindAddress returns the address tab, or nil when absent.
func (r *StudentRepository) FindAddress(ctx context.Context, studentID string) (*models.Address, error) {
	const query = `SELECT id, student_id, street, number, complement, neighborhood, cep, city, state, phone_number, cell_phone, email, created_at, updated_at
FROM addresses WHERE student_id = $1 LIMIT 1`
	var address models.Address
	if err := r.db.GetContext(ctx, &address, query, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find address: %w", err)
	}
	return &address, nil
}

// FindSchooling returns the schooling tab, or nil when absent.
func (r *StudentRepository) FindSchooling(ctx context.Context, studentID string) (*models.Schooling, error) {
	const query = `SELECT id, student_id, education_level, requested_level, last_grade_completed, ra, school_type, school_name, studied_at_ceeja, created_at, updated_at
FROM schooling_data WHERE student_id = $1 LIMIT 1`
	var schooling models.Schooling
	if err := r.db.GetContext(ctx, &schooling, query, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find schooling: %w", err)
	}
	return &schooling, nil
}
