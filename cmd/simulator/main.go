package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/maintenance-hub/internal/models"
)

// Skill categories shared by equipment and technicians so auto-assignment
// finds candidates.
var categories = []string{"HVAC", "Electrical", "Plumbing", "Mechanical", "IT"}

var equipmentNames = map[string][]string{
	"HVAC":       {"Chiller", "Air Handler", "Rooftop Unit", "Cooling Tower"},
	"Electrical": {"Switchboard", "Generator", "UPS", "Transformer"},
	"Plumbing":   {"Booster Pump", "Water Heater", "Backflow Valve"},
	"Mechanical": {"Conveyor", "Compressor", "Lift", "Press"},
	"IT":         {"Core Switch", "Server Rack", "Badge Reader"},
}

var faults = []string{
	"Unusual noise during operation",
	"Not starting after power cycle",
	"Leaking near the base",
	"Running hot",
	"Intermittent alarm",
	"Scheduled inspection due",
}

var parts = []models.PartInput{
	{Name: "Filter", Quantity: 2, UnitCost: 12.5},
	{Name: "Drive belt", Quantity: 1, UnitCost: 34},
	{Name: "Fuse", Quantity: 4, UnitCost: 2.25},
	{Name: "Gasket", Quantity: 1, UnitCost: 8},
	{Name: "Bearing", Quantity: 2, UnitCost: 19.9},
}

// apiClient talks to the maintenance API with an optional bearer token.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAPIClient(baseURL, token string) *apiClient {
	return &apiClient{baseURL: baseURL, token: token, http: &http.Client{Timeout: 10 * time.Second}}
}

// call sends body as JSON and decodes the response into out when the
// status matches want.
func (c *apiClient) call(method, path string, body, out interface{}, want int) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		var apiErr struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("%s %s failed with status %d: %s %s", method, path, resp.StatusCode, apiErr.Code, apiErr.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *apiClient) login(username, password string) error {
	var resp models.LoginResponse
	if err := c.call(http.MethodPost, "/auth/login", models.LoginRequest{Username: username, Password: password}, &resp, http.StatusOK); err != nil {
		return err
	}
	c.token = resp.Token
	return nil
}

// fixture is the reference data the simulation raises requests against.
type fixture struct {
	WorkshopID  string
	TeamID      string
	Equipment   []models.Equipment
	Technicians []models.User
}

func seed(c *apiClient, equipmentCount, technicianCount int) (*fixture, error) {
	suffix := strconv.FormatInt(time.Now().Unix(), 36)
	fx := &fixture{}

	var workshop models.Workshop
	if err := c.call(http.MethodPost, "/workshops", map[string]string{
		"name": "Simulated Plant " + suffix,
		"code": "SIM-" + suffix,
	}, &workshop, http.StatusCreated); err != nil {
		return nil, err
	}
	fx.WorkshopID = workshop.ID.Hex()

	var team models.Team
	if err := c.call(http.MethodPost, "/teams", map[string]interface{}{
		"name":           "Simulated Crew " + suffix,
		"specialization": categories,
		"workshop_id":    fx.WorkshopID,
	}, &team, http.StatusCreated); err != nil {
		return nil, err
	}
	fx.TeamID = team.ID.Hex()

	for i := 0; i < technicianCount; i++ {
		tech, err := registerTechnician(c, fx.TeamID, suffix, i)
		if err != nil {
			log.WithError(err).Warn("Failed to create technician")
			continue
		}
		fx.Technicians = append(fx.Technicians, *tech)
	}

	for i := 0; i < equipmentCount; i++ {
		eq, err := createEquipment(c, fx.WorkshopID, suffix, i)
		if err != nil {
			log.WithError(err).Warn("Failed to create equipment")
			continue
		}
		fx.Equipment = append(fx.Equipment, *eq)
	}
	if len(fx.Equipment) == 0 {
		return nil, fmt.Errorf("no equipment created")
	}

	log.WithFields(log.Fields{
		"workshop":    workshop.Code,
		"equipment":   len(fx.Equipment),
		"technicians": len(fx.Technicians),
	}).Info("Seeded reference data")
	return fx, nil
}

// registerTechnician signs up a technician with two skills and moves them
// into the simulated workshop's team.
func registerTechnician(c *apiClient, teamID, suffix string, i int) (*models.User, error) {
	skills := []string{categories[i%len(categories)], categories[(i+1)%len(categories)]}
	username := fmt.Sprintf("sim-tech-%s-%d", suffix, i+1)

	var resp models.LoginResponse
	public := &apiClient{baseURL: c.baseURL, http: c.http}
	if err := public.call(http.MethodPost, "/auth/register", models.RegisterRequest{
		Username:  username,
		Email:     username + "@sim.example.com",
		Password:  "simulated-" + suffix,
		FirstName: "Sim",
		LastName:  fmt.Sprintf("Technician %d", i+1),
		Role:      models.RoleTechnician,
		Skills:    skills,
	}, &resp, http.StatusCreated); err != nil {
		return nil, err
	}

	var tech models.User
	if err := c.call(http.MethodPut, "/technicians/"+resp.User.ID.Hex(), models.TechnicianUpdate{TeamID: &teamID}, &tech, http.StatusOK); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"username": username, "skills": skills}).Info("Created technician")
	return &tech, nil
}

func createEquipment(c *apiClient, workshopID, suffix string, i int) (*models.Equipment, error) {
	category := categories[rand.Intn(len(categories))]
	names := equipmentNames[category]
	name := names[rand.Intn(len(names))]

	var eq models.Equipment
	if err := c.call(http.MethodPost, "/equipment", map[string]interface{}{
		"name":          fmt.Sprintf("%s %d", name, i+1),
		"serial_number": fmt.Sprintf("SIM-%s-%04d", suffix, i+1),
		"category":      category,
		"manufacturer":  "Acme",
		"workshop_id":   workshopID,
	}, &eq, http.StatusCreated); err != nil {
		return nil, err
	}
	return &eq, nil
}

// randomRequest builds a plausible request against eq. Emergencies are rare.
func randomRequest(eq models.Equipment, now time.Time) models.CreateRequestInput {
	in := models.CreateRequestInput{
		Title:       fmt.Sprintf("%s: %s", eq.Name, faults[rand.Intn(len(faults))]),
		Description: "Raised by the load simulator",
		Type:        models.TypeCorrective,
		EquipmentID: eq.ID.Hex(),
		Priority:    models.PriorityMedium,
		Urgency:     models.LevelMedium,
		Impact:      models.LevelMedium,
	}
	switch n := rand.Intn(100); {
	case n < 5:
		in.Type, in.Priority, in.Urgency, in.Impact = models.TypeEmergency, models.PriorityEmergency, models.LevelCritical, models.LevelHigh
	case n < 20:
		in.Priority, in.Urgency = models.PriorityHigh, models.LevelHigh
	case n < 40:
		in.Type, in.Priority, in.Urgency, in.Impact = models.TypePreventive, models.PriorityLow, models.LevelLow, models.LevelLow
		scheduled := now.Add(time.Duration(24+rand.Intn(72)) * time.Hour)
		in.ScheduledDate = &scheduled
	case n < 50:
		in.Type = models.TypePredictive
	}
	return in
}

// step is the next lifecycle action the simulator takes on a request.
type step int

const (
	stepNone step = iota
	stepAutoAssign
	stepStart
	stepLogWork
	stepWaitForParts
	stepResume
	stepComplete
	stepCancel
)

// nextStep picks the action for a request in status. roll is uniform in [0,100).
func nextStep(status models.Status, roll int) step {
	switch status {
	case models.StatusNew:
		if roll < 5 {
			return stepCancel
		}
		return stepAutoAssign
	case models.StatusAssigned:
		return stepStart
	case models.StatusInProgress:
		switch {
		case roll < 15:
			return stepWaitForParts
		case roll < 55:
			return stepLogWork
		default:
			return stepComplete
		}
	case models.StatusWaitingForParts, models.StatusOnHold:
		return stepResume
	default:
		return stepNone
	}
}

// advance performs one lifecycle step and returns the updated request.
func advance(c *apiClient, req models.RequestView, roll int) (*models.RequestView, error) {
	path := "/requests/" + req.ID.Hex()
	transition := func(status models.Status, note *models.WorkNoteInput) (*models.RequestView, error) {
		var out models.RequestView
		err := c.call(http.MethodPost, path+"/transition", models.TransitionInput{Status: status, Note: note}, &out, http.StatusOK)
		return &out, err
	}

	var out models.RequestView
	switch nextStep(req.Status, roll) {
	case stepAutoAssign:
		return &out, c.call(http.MethodPost, path+"/auto-assign", nil, &out, http.StatusOK)
	case stepStart, stepResume:
		return transition(models.StatusInProgress, nil)
	case stepLogWork:
		if err := c.call(http.MethodPost, path+"/parts", models.PartsInput{
			Parts: []models.PartInput{parts[rand.Intn(len(parts))]},
		}, nil, http.StatusCreated); err != nil {
			return nil, err
		}
		return &out, c.call(http.MethodPost, path+"/notes", models.WorkNoteInput{
			Note:        "Diagnosed and replaced worn part",
			HoursWorked: float64(1+rand.Intn(8)) / 2,
		}, &out, http.StatusCreated)
	case stepWaitForParts:
		return transition(models.StatusWaitingForParts, nil)
	case stepComplete:
		return transition(models.StatusCompleted, &models.WorkNoteInput{Note: "Work completed and tested", HoursWorked: 1})
	case stepCancel:
		return transition(models.StatusCancelled, nil)
	default:
		return &req, nil
	}
}

// simulator raises requests and walks open ones through their lifecycle.
type simulator struct {
	client   *apiClient
	fixture  *fixture
	open     []models.RequestView
	maxOpen  int
	interval time.Duration
}

func (s *simulator) tick(now time.Time) {
	if len(s.open) < s.maxOpen {
		eq := s.fixture.Equipment[rand.Intn(len(s.fixture.Equipment))]
		var created models.RequestView
		if err := s.client.call(http.MethodPost, "/requests", randomRequest(eq, now), &created, http.StatusCreated); err != nil {
			log.WithError(err).Error("Failed to create request")
		} else {
			s.open = append(s.open, created)
			log.WithFields(log.Fields{
				"request_number": created.RequestNumber,
				"priority":       created.Priority,
				"equipment":      eq.Name,
			}).Info("Created request")
		}
	}

	still := s.open[:0]
	for _, req := range s.open {
		next, err := advance(s.client, req, rand.Intn(100))
		if err != nil {
			log.WithError(err).WithField("request_number", req.RequestNumber).Warn("Lifecycle step failed")
			still = append(still, req)
			continue
		}
		if next.MaintenanceRequest == nil {
			next = &req
		}
		if next.Status != req.Status {
			log.WithFields(log.Fields{
				"request_number": next.RequestNumber,
				"from":           req.Status,
				"to":             next.Status,
			}).Info("Advanced request")
		}
		if !next.Status.IsTerminal() {
			still = append(still, *next)
		}
	}
	s.open = still
}

func (s *simulator) run(stop <-chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			s.tick(now)
		}
	}
}

func envInt(name string, def int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func main() {
	apiURL := os.Getenv("API_BASE_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080/api"
	}
	client := newAPIClient(apiURL, os.Getenv("SIM_AUTH_TOKEN"))
	if client.token == "" {
		username := os.Getenv("SIM_ADMIN_USERNAME")
		if username == "" {
			username = "admin"
		}
		if err := client.login(username, os.Getenv("SIM_ADMIN_PASSWORD")); err != nil {
			log.WithError(err).Fatal("Failed to log in; set SIM_AUTH_TOKEN or SIM_ADMIN_PASSWORD")
		}
	}

	interval := time.Duration(envInt("SIM_TICK_SECONDS", 5)) * time.Second
	log.WithFields(log.Fields{
		"api_url":  apiURL,
		"interval": interval,
	}).Info("Starting maintenance simulation")

	fx, err := seed(client, envInt("SIM_EQUIPMENT", 10), envInt("SIM_TECHNICIANS", 5))
	if err != nil {
		log.WithError(err).Fatal("Failed to seed reference data")
	}

	sim := &simulator{
		client:   client,
		fixture:  fx,
		maxOpen:  envInt("SIM_MAX_OPEN", 20),
		interval: interval,
	}
	log.Info("Request simulation started")
	sim.run(make(chan struct{}))
}
