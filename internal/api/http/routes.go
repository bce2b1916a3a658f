package httpapi

import (
	"math"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"skycast/internal/session"
	"skycast/internal/weather"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, coord *session.Coordinator) {
	v1 := app.Group("/api/v1")

	v1.Get("/session", func(c *fiber.Ctx) error {
		return c.JSON(sessionView(coord.State()))
	})

	v1.Post("/session/location", func(c *fiber.Ctx) error {
		var req selectLocationRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		err := coord.SelectLocation(c.Context(), req.lat(), req.lon(), req.metadata())
		if err != nil {
			if weather.IsValidation(err) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return fiber.NewError(fiber.StatusBadGateway, "failed to load weather data")
		}
		return c.JSON(sessionView(coord.State()))
	})

	v1.Get("/locations/search", func(c *fiber.Ctx) error {
		locations, err := coord.SearchNow(c.Context(), c.Query("q"))
		if err != nil {
			if weather.IsValidation(err) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return fiber.NewError(fiber.StatusBadGateway, "city search failed")
		}
		return c.JSON(fiber.Map{"locations": locations})
	})

	v1.Get("/locations/recents", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"locations": coord.Recents(c.Context())})
	})

	v1.Delete("/locations/recents", func(c *fiber.Ctx) error {
		if err := coord.ClearRecents(c.Context()); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to clear recent locations")
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

// selectLocationRequest carries a location selection. Coordinates are
// pointers so an absent field is distinguishable from zero.
type selectLocationRequest struct {
	Lat     *float64 `json:"lat" validate:"required"`
	Lon     *float64 `json:"lon" validate:"required"`
	Name    string   `json:"name"`
	Country string   `json:"country"`
	State   *string  `json:"state"`
}

func (r selectLocationRequest) lat() float64 {
	if r.Lat == nil {
		return math.NaN()
	}
	return *r.Lat
}

func (r selectLocationRequest) lon() float64 {
	if r.Lon == nil {
		return math.NaN()
	}
	return *r.Lon
}

func (r selectLocationRequest) metadata() *weather.Location {
	if r.Name == "" && r.Country == "" && r.State == nil {
		return nil
	}
	return &weather.Location{
		Name:    r.Name,
		Lat:     r.lat(),
		Lon:     r.lon(),
		Country: r.Country,
		State:   r.State,
	}
}

// weatherView augments the snapshot with the display wind speed in km/h;
// the stored value stays in m/s.
type weatherView struct {
	weather.WeatherSnapshot
	WindSpeedKMH int `json:"windSpeedKmh"`
}

type sessionResponse struct {
	State    string                 `json:"state"`
	Weather  *weatherView           `json:"weather,omitempty"`
	Forecast []weather.DailySummary `json:"forecast,omitempty"`
	Location weather.Location       `json:"location"`
	Error    string                 `json:"error,omitempty"`
}

func sessionView(snap session.Snapshot) sessionResponse {
	resp := sessionResponse{
		State:    string(snap.State),
		Forecast: snap.Forecast,
		Location: snap.Location,
		Error:    snap.Message,
	}
	if snap.Weather != nil {
		resp.Weather = &weatherView{
			WeatherSnapshot: *snap.Weather,
			WindSpeedKMH:    snap.Weather.WindSpeedKMH(),
		}
	}
	return resp
}
