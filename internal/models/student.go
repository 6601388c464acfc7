package models

import "time"

// Student is the enrollment-verification record shown in the cockpit. The
// enrollment_id links the student to their uploaded documents.
type Student struct {
	ID           string    `db:"id" json:"id"`
	EnrollmentID *string   `db:"enrollment_id" json:"enrollment_id,omitempty"`
	FullName     string    `db:"full_name" json:"full_name"`
	Email        string    `db:"email" json:"email"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// PersonalData holds the identification tab of a student's record.
type PersonalData struct {
	ID          string     `db:"id" json:"id"`
	StudentID   string     `db:"student_id" json:"student_id"`
	Name        string     `db:"name" json:"name"`
	RG          string     `db:"rg" json:"rg"`
	CPF         string     `db:"cpf" json:"cpf"`
	BirthDate   *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	MotherName  string     `db:"mother_name" json:"mother_name"`
	FatherName  string     `db:"father_name" json:"father_name"`
	Nationality string     `db:"nationality" json:"nationality"`
	Naturalness string     `db:"naturalness" json:"naturalness"`
	RaceColor   string     `db:"race_color" json:"race_color"`
	Sex         string     `db:"sex" json:"sex"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Address holds the residence tab of a student's record.
type Address struct {
	ID           string    `db:"id" json:"id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	Street       string    `db:"street" json:"street"`
	Number       string    `db:"number" json:"number"`
	Complement   string    `db:"complement" json:"complement"`
	Neighborhood string    `db:"neighborhood" json:"neighborhood"`
	CEP          string    `db:"cep" json:"cep"`
	City         string    `db:"city" json:"city"`
	State        string    `db:"state" json:"state"`
	PhoneNumber  string    `db:"phone_number" json:"phone_number"`
	CellPhone    string    `db:"cell_phone" json:"cell_phone"`
	Email        string    `db:"email" json:"email"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Schooling holds the education-history tab of a student's record.
type Schooling struct {
	ID                 string    `db:"id" json:"id"`
	StudentID          string    `db:"student_id" json:"student_id"`
	EducationLevel     string    `db:"education_level" json:"education_level"`
	RequestedLevel     string    `db:"requested_level" json:"requested_level"`
	LastGradeCompleted string    `db:"last_grade_completed" json:"last_grade_completed"`
	RA                 string    `db:"ra" json:"ra"`
	SchoolType         string    `db:"school_type" json:"school_type"`
	SchoolName         string    `db:"school_name" json:"school_name"`
	StudiedAtCEEJA     bool      `db:"studied_at_ceeja" json:"studied_at_ceeja"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// StudentProfile aggregates the three cockpit tabs for a single student.
type StudentProfile struct {
	Student      Student       `json:"student"`
	PersonalData *PersonalData `json:"personal_data,omitempty"`
	Address      *Address      `json:"address,omitempty"`
	Schooling    *Schooling    `json:"schooling,omitempty"`
}
