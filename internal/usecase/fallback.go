package usecase

import (
	"time"

	"github.com/fairyhunter13/internship-recommender/internal/domain"
)

// sampleRecommendations is the built-in set shown when the live service and
// the cache both fail.
var sampleRecommendations = []domain.Recommendation{
	{
		InternshipID:     "SAMPLE_001",
		Title:            "Software Development Intern",
		OrganizationName: "National Informatics Centre",
		Domain:           "Computer Science",
		Location:         "New Delhi",
		Duration:         "3 months",
		Stipend:          10000,
		SuccessProb:      0.72,
		MissingSkills:    []string{"git"},
		Courses: []domain.Course{
			{Name: "Git Essentials", URL: "https://www.coursera.org/learn/introduction-git-github", Platform: "Coursera"},
		},
		Reasons: []string{"Popular starting role for engineering students", "Open to all streams"},
	},
	{
		InternshipID:     "SAMPLE_002",
		Title:            "Data Analytics Intern",
		OrganizationName: "Digital India Corporation",
		Domain:           "Data Science",
		Location:         "Remote",
		Duration:         "2 months",
		Stipend:          8000,
		SuccessProb:      0.64,
		MissingSkills:    []string{"sql", "excel"},
		Courses: []domain.Course{
			{Name: "SQL for Data Science", URL: "https://www.coursera.org/learn/sql-for-data-science", Platform: "Coursera"},
		},
		Reasons: []string{"Remote friendly", "Builds analytics fundamentals"},
	},
	{
		InternshipID:     "SAMPLE_003",
		Title:            "Field Operations Intern",
		OrganizationName: "Rural Development Trust",
		Domain:           "Business",
		Location:         "Anantapur",
		Duration:         "6 weeks",
		Stipend:          5000,
		SuccessProb:      0.58,
		MissingSkills:    []string{},
		Courses:          []domain.Course{},
		Reasons:          []string{"Close to home for rural applicants"},
	},
}

// SampleResponse returns the built-in set addressed to studentID. The slices
// are copied so callers may modify the result.
func SampleResponse(studentID string, now time.Time) *domain.RecommendationResponse {
	recs := make([]domain.Recommendation, len(sampleRecommendations))
	for i, r := range sampleRecommendations {
		r.MissingSkills = append([]string{}, r.MissingSkills...)
		r.Reasons = append([]string{}, r.Reasons...)
		r.Courses = append([]domain.Course{}, r.Courses...)
		recs[i] = r
	}
	return &domain.RecommendationResponse{
		StudentID:            studentID,
		TotalRecommendations: len(recs),
		GeneratedAt:          now.UTC().Format(time.RFC3339),
		Recommendations:      recs,
	}
}
