package models

type CourseStatus string

const (
	CourseAvailable  CourseStatus = "available"
	CourseComingSoon CourseStatus = "coming-soon"
)

type Course struct {
	ID          string       `json:"id" yaml:"id"`
	Name        string       `json:"name" yaml:"name"`
	ShortName   string       `json:"shortName" yaml:"shortName"`
	Description string       `json:"description" yaml:"description"`
	Status      CourseStatus `json:"status" yaml:"status"`
	Semesters   int          `json:"semesters" yaml:"semesters"`
}

func (c Course) Available() bool { return c.Status == CourseAvailable }

type Subject struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	CourseID    string `json:"courseId" yaml:"-"`
	SemesterID  int    `json:"semesterId" yaml:"-"`
}
