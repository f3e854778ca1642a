// Package catalog holds the fixed course, semester and subject hierarchy and
// turns storage listings under it into notes.
package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
)

//go:embed catalog.yaml
var catalogYAML []byte

type semester struct {
	Number   int              `yaml:"number"`
	Title    string           `yaml:"title"`
	Subjects []models.Subject `yaml:"subjects"`
}

type document struct {
	Courses   []models.Course       `yaml:"courses"`
	Semesters map[string][]semester `yaml:"semesters"`
}

type Catalog struct {
	courses   []models.Course
	semesters map[string]map[int]semester
}

// Load parses the embedded catalogue.
func Load() (*Catalog, error) {
	return Parse(catalogYAML)
}

func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := &Catalog{courses: doc.Courses, semesters: map[string]map[int]semester{}}
	for courseID, sems := range doc.Semesters {
		m := map[int]semester{}
		for _, s := range sems {
			for i := range s.Subjects {
				s.Subjects[i].CourseID = courseID
				s.Subjects[i].SemesterID = s.Number
			}
			m[s.Number] = s
		}
		c.semesters[courseID] = m
	}
	return c, nil
}

func (c *Catalog) Courses() []models.Course {
	return append([]models.Course(nil), c.courses...)
}

func (c *Catalog) Course(id string) (models.Course, bool) {
	for _, course := range c.courses {
		if course.ID == id {
			return course, true
		}
	}
	return models.Course{}, false
}

// SemesterTitle falls back to "Semester N".
func (c *Catalog) SemesterTitle(courseID string, n int) string {
	if s, ok := c.semesters[courseID][n]; ok && s.Title != "" {
		return s.Title
	}
	return fmt.Sprintf("Semester %d", n)
}

// Semesters returns the semester numbers of a course in order.
func (c *Catalog) Semesters(courseID string) []int {
	course, ok := c.Course(courseID)
	if !ok {
		return nil
	}
	out := make([]int, 0, course.Semesters)
	for n := 1; n <= course.Semesters; n++ {
		out = append(out, n)
	}
	return out
}

// Subjects is empty for unknown semesters.
func (c *Catalog) Subjects(courseID string, n int) []models.Subject {
	s, ok := c.semesters[courseID][n]
	if !ok {
		return []models.Subject{}
	}
	return append([]models.Subject{}, s.Subjects...)
}

func (c *Catalog) Subject(courseID string, n int, subjectID string) (models.Subject, bool) {
	for _, s := range c.semesters[courseID][n].Subjects {
		if s.ID == subjectID {
			return s, true
		}
	}
	return models.Subject{}, false
}
