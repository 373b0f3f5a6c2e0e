package candidates

import (
	"context"
	"errors"

	"recruitment_backend/platform/db"

	"github.com/google/uuid"
)

var (
	ErrNotFound       = errors.New("candidate not found")
	ErrDuplicateEmail = errors.New("candidate email already exists")
)

// Repository is the pgx persistence of candidates. Every method runs on the
// querier it is given.
type Repository struct{}

// NewRepository creates a Repository.
func NewRepository() *Repository {
	return &Repository{}
}

const candidateColumns = `c.id, c.first_name, c.first_surname, c.second_surname, c.national_id, c.email, c.phone,
	c.birth_date, c.has_disability, c.commune_id, c.nationality_id, c.sector_id, c.created_at, c.updated_at`

func candidateFields(c *Candidate) []interface{} {
	return []interface{}{
		&c.ID, &c.FirstName, &c.FirstSurname, &c.SecondSurname, &c.NationalID, &c.Email, &c.Phone,
		&c.BirthDate, &c.HasDisability, &c.CommuneID, &c.NationalityID, &c.SectorID, &c.CreatedAt, &c.UpdatedAt,
	}
}

// Insert stores a new candidate. A taken email yields ErrDuplicateEmail.
func (r *Repository) Insert(ctx context.Context, q db.DBTX, c Candidate) (Candidate, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	err := q.QueryRow(ctx, `
		INSERT INTO candidates AS c (id, first_name, first_surname, second_surname, national_id, email, phone,
			birth_date, has_disability, commune_id, nationality_id, sector_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+candidateColumns,
		c.ID, c.FirstName, c.FirstSurname, c.SecondSurname, c.NationalID, c.Email, c.Phone,
		c.BirthDate, c.HasDisability, c.CommuneID, c.NationalityID, c.SectorID,
	).Scan(candidateFields(&c)...)
	if db.IsUniqueViolation(err) {
		return Candidate{}, ErrDuplicateEmail
	}
	return c, err
}

// FindIDByEmail returns the id of the candidate with email.
func (r *Repository) FindIDByEmail(ctx context.Context, q db.DBTX, email string) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.QueryRow(ctx, `SELECT id FROM candidates WHERE email = $1`, email).Scan(&id)
	if db.IsNoRows(err) {
		return uuid.Nil, ErrNotFound
	}
	return id, err
}

// Get returns one candidate without relations.
func (r *Repository) Get(ctx context.Context, q db.DBTX, id uuid.UUID) (Candidate, error) {
	var c Candidate
	err := q.QueryRow(ctx, `SELECT `+candidateColumns+` FROM candidates c WHERE c.id = $1`, id).Scan(candidateFields(&c)...)
	if db.IsNoRows(err) {
		return Candidate{}, ErrNotFound
	}
	return c, err
}

// Update overwrites the editable fields of a candidate.
func (r *Repository) Update(ctx context.Context, q db.DBTX, c Candidate) error {
	tag, err := q.Exec(ctx, `
		UPDATE candidates
		SET first_name = $2, first_surname = $3, second_surname = $4, national_id = $5, email = $6, phone = $7,
			birth_date = $8, has_disability = $9, commune_id = $10, nationality_id = $11, sector_id = $12,
			updated_at = now()
		WHERE id = $1
	`, c.ID, c.FirstName, c.FirstSurname, c.SecondSurname, c.NationalID, c.Email, c.Phone,
		c.BirthDate, c.HasDisability, c.CommuneID, c.NationalityID, c.SectorID)
	if db.IsUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertExperience stores one work history entry.
func (r *Repository) InsertExperience(ctx context.Context, q db.DBTX, e WorkExperience) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := q.Exec(ctx, `
		INSERT INTO work_experiences (id, candidate_id, company, position, start_date, end_date, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, e.ID, e.CandidateID, e.Company, e.Position, e.StartDate, e.EndDate, e.Description)
	return err
}

// InsertCourse stores a course row and links it to the candidate.
func (r *Repository) InsertCourse(ctx context.Context, q db.DBTX, candidateID uuid.UUID, c Course) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if _, err := q.Exec(ctx, `
		INSERT INTO courses (id, name, kind, institution_id)
		VALUES ($1, $2, $3, $4)
	`, c.ID, c.Name, string(c.Kind), c.InstitutionID); err != nil {
		return err
	}
	_, err := q.Exec(ctx, `
		INSERT INTO candidate_courses (candidate_id, course_id, acquired_on)
		VALUES ($1, $2, $3)
	`, candidateID, c.ID, c.AcquiredOn)
	return err
}

// AttachProfession links a profession to the candidate. Attaching the same
// profession again updates its institution and date.
func (r *Repository) AttachProfession(ctx context.Context, q db.DBTX, candidateID uuid.UUID, p ProfessionLink) error {
	_, err := q.Exec(ctx, `
		INSERT INTO candidate_professions (candidate_id, profession_id, institution_id, acquired_on)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (candidate_id, profession_id)
		DO UPDATE SET institution_id = EXCLUDED.institution_id, acquired_on = EXCLUDED.acquired_on
	`, candidateID, p.ProfessionID, p.InstitutionID, p.AcquiredOn)
	return err
}

// Load returns a candidate with relations and reference names.
func (r *Repository) Load(ctx context.Context, q db.DBTX, id uuid.UUID) (Record, error) {
	var rec Record
	fields := append(candidateFields(&rec.Candidate), &rec.Commune, &rec.Region, &rec.Nationality, &rec.Sector)
	err := q.QueryRow(ctx, `
		SELECT `+candidateColumns+`,
			COALESCE(co.name, ''), COALESCE(rg.name, ''), COALESCE(n.name, ''), COALESCE(s.name, '')
		FROM candidates c
		LEFT JOIN communes co ON co.id = c.commune_id
		LEFT JOIN regions rg ON rg.id = co.region_id
		LEFT JOIN nationalities n ON n.id = c.nationality_id
		LEFT JOIN sectors s ON s.id = c.sector_id
		WHERE c.id = $1
	`, id).Scan(fields...)
	if db.IsNoRows(err) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}

	if rec.Experiences, err = r.listExperiences(ctx, q, id); err != nil {
		return Record{}, err
	}
	if rec.Courses, err = r.listCourses(ctx, q, id); err != nil {
		return Record{}, err
	}
	if rec.Professions, err = r.listProfessions(ctx, q, id); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (r *Repository) listExperiences(ctx context.Context, q db.DBTX, candidateID uuid.UUID) ([]WorkExperience, error) {
	rows, err := q.Query(ctx, `
		SELECT id, candidate_id, company, position, start_date, end_date, description
		FROM work_experiences
		WHERE candidate_id = $1
		ORDER BY start_date DESC NULLS LAST, company
	`, candidateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WorkExperience
	for rows.Next() {
		var e WorkExperience
		if err := rows.Scan(&e.ID, &e.CandidateID, &e.Company, &e.Position, &e.StartDate, &e.EndDate, &e.Description); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repository) listCourses(ctx context.Context, q db.DBTX, candidateID uuid.UUID) ([]CourseRecord, error) {
	rows, err := q.Query(ctx, `
		SELECT co.id, co.name, co.kind, co.institution_id, cc.acquired_on, i.name
		FROM candidate_courses cc
		JOIN courses co ON co.id = cc.course_id
		JOIN institutions i ON i.id = co.institution_id
		WHERE cc.candidate_id = $1
		ORDER BY cc.acquired_on DESC NULLS LAST, co.name
	`, candidateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CourseRecord
	for rows.Next() {
		var (
			c    CourseRecord
			kind string
		)
		if err := rows.Scan(&c.ID, &c.Name, &kind, &c.InstitutionID, &c.AcquiredOn, &c.Institution); err != nil {
			return nil, err
		}
		c.Kind = CourseKind(kind)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) listProfessions(ctx context.Context, q db.DBTX, candidateID uuid.UUID) ([]ProfessionRecord, error) {
	rows, err := q.Query(ctx, `
		SELECT cp.profession_id, cp.institution_id, cp.acquired_on, p.name, i.name
		FROM candidate_professions cp
		JOIN professions p ON p.id = cp.profession_id
		JOIN institutions i ON i.id = cp.institution_id
		WHERE cp.candidate_id = $1
		ORDER BY p.name
	`, candidateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProfessionRecord
	for rows.Next() {
		var p ProfessionRecord
		if err := rows.Scan(&p.ProfessionID, &p.InstitutionID, &p.AcquiredOn, &p.Profession, &p.Institution); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CountApplications returns how many applications reference the candidate.
func (r *Repository) CountApplications(ctx context.Context, q db.DBTX, id uuid.UUID) (int, error) {
	var n int
	err := q.QueryRow(ctx, `SELECT COUNT(*) FROM applications WHERE candidate_id = $1`, id).Scan(&n)
	return n, err
}

// Delete removes a candidate and its owned rows. It reports whether a row
// was deleted.
func (r *Repository) Delete(ctx context.Context, q db.DBTX, id uuid.UUID) (bool, error) {
	tag, err := q.Exec(ctx, `DELETE FROM candidates WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
