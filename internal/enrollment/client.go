// Package enrollment - клиент внешней системы зачисления. Для нас это
// непрозрачный источник данных: по номеру студента он возвращает кортежи
// (school_year_id, course_id, year_level_id), по которым события
// сопоставляются с участниками. Сами кортежи мы не вычисляем и не
// храним.
package enrollment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrUpstreamUnavailable - система зачисления не ответила или ответила
// ошибкой. Вызывающая сторона считает зависимые функции недоступными и
// отдает понятную ошибку вместо зависания.
var ErrUpstreamUnavailable = errors.New("failed to fetch enrollment data")

const requestTimeout = 10 * time.Second

// Condition - одно зачисление студента: учебный год, курс, уровень года.
type Condition struct {
	SchoolYearID int64 `json:"school_year_id"`
	CourseID     int64 `json:"course_id"`
	YearLevelID  int64 `json:"year_level_id"`
}

// Client ходит в систему зачисления с bearer-токеном и ограниченным
// таймаутом.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		HTTP:    &http.Client{Timeout: requestTimeout},
	}
}

// Форма ответа /api/student-enrollment.
type enrollmentPayload struct {
	UserIDNo         string  `json:"user_id_no"`
	FirstName        string  `json:"first_name"`
	LastName         string  `json:"last_name"`
	MiddleName       *string `json:"middle_name"`
	EnrolledStudents []struct {
		YearSection struct {
			SchoolYear struct {
				ID int64 `json:"id"`
			} `json:"school_year"`
			Course struct {
				ID int64 `json:"id"`
			} `json:"course"`
			YearLevel struct {
				ID int64 `json:"id"`
			} `json:"year_level"`
		} `json:"year_section"`
	} `json:"enrolled_students"`
}

// StudentProfile - студент с его условиями зачисления.
type StudentProfile struct {
	UserIDNo   string
	FirstName  string
	LastName   string
	MiddleName *string
	Conditions []Condition
}

// StudentEnrollment возвращает условия зачисления для набора номеров
// студентов. Пустой список без ошибки означает "зачислений не найдено".
func (c *Client) StudentEnrollment(ctx context.Context, userIDNos []string) ([]Condition, error) {
	profiles, err := c.StudentProfiles(ctx, userIDNos)
	if err != nil {
		return nil, err
	}

	var conditions []Condition
	for _, profile := range profiles {
		conditions = append(conditions, profile.Conditions...)
	}
	return conditions, nil
}

// StudentProfiles возвращает студентов с именами и условиями зачисления.
func (c *Client) StudentProfiles(ctx context.Context, userIDNos []string) ([]StudentProfile, error) {
	query := url.Values{}
	for _, id := range userIDNos {
		query.Add("user_id_no[]", id)
	}

	body, err := c.get(ctx, "/api/student-enrollment", query)
	if err != nil {
		return nil, err
	}

	var payloads []enrollmentPayload
	if err := json.Unmarshal(body, &payloads); err != nil {
		return nil, fmt.Errorf("%w: bad response body", ErrUpstreamUnavailable)
	}

	profiles := make([]StudentProfile, 0, len(payloads))
	for _, payload := range payloads {
		profile := StudentProfile{
			UserIDNo:   payload.UserIDNo,
			FirstName:  payload.FirstName,
			LastName:   payload.LastName,
			MiddleName: payload.MiddleName,
		}
		for _, enroll := range payload.EnrolledStudents {
			ys := enroll.YearSection
			profile.Conditions = append(profile.Conditions, Condition{
				SchoolYearID: ys.SchoolYear.ID,
				CourseID:     ys.Course.ID,
				YearLevelID:  ys.YearLevel.ID,
			})
		}
		profiles = append(profiles, profile)
	}
	return profiles, nil
}

// SchoolStructure возвращает справочник учебных лет, курсов и уровней
// как есть; фильтры запроса пробрасываются без изменений.
func (c *Client) SchoolStructure(ctx context.Context, query url.Values) (json.RawMessage, error) {
	body, err := c.get(ctx, "/api/school-structure", query)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// EnrolledStudents проксирует список зачисленных студентов.
func (c *Client) EnrolledStudents(ctx context.Context, query url.Values) (json.RawMessage, error) {
	body, err := c.get(ctx, "/api/enrolled-students", query)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if c.BaseURL == "" {
		return nil, ErrUpstreamUnavailable
	}

	reqURL := c.BaseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build enrollment request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	return body, nil
}
