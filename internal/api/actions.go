package api

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/talgya/valley-farm/internal/farm"
	"github.com/talgya/valley-farm/internal/report"
)

// plotKey parses the :key path parameter ("row-col").
func plotKey(c echo.Context) (farm.PlotKey, error) {
	return farm.ParsePlotKey(c.Param("key"))
}

type plotAction func(k farm.PlotKey) (any, error)

// onPlot runs fn against the plot named in the path.
func onPlot(c echo.Context, fn plotAction) error {
	k, err := plotKey(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	result, err := fn(k)
	return reply(c, result, err)
}

func (s *Server) handlePlot(c echo.Context) error {
	return onPlot(c, func(k farm.PlotKey) (any, error) {
		return s.Farm.Plot(k.Row, k.Col)
	})
}

func (s *Server) handlePlant(c echo.Context) error {
	var req struct {
		Crop string `json:"crop"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid json")
	}
	return onPlot(c, func(k farm.PlotKey) (any, error) {
		return s.Farm.Plant(k.Row, k.Col, req.Crop)
	})
}

func (s *Server) handleWater(c echo.Context) error {
	return onPlot(c, func(k farm.PlotKey) (any, error) {
		return s.Farm.Water(k.Row, k.Col)
	})
}

func (s *Server) handleFertilize(c echo.Context) error {
	return onPlot(c, func(k farm.PlotKey) (any, error) {
		return s.Farm.Fertilize(k.Row, k.Col)
	})
}

func (s *Server) handleHarvest(c echo.Context) error {
	return onPlot(c, func(k farm.PlotKey) (any, error) {
		return s.Farm.Harvest(k.Row, k.Col)
	})
}

func (s *Server) handleInstall(c echo.Context) error {
	var req struct {
		Asset string `json:"asset"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid json")
	}
	return onPlot(c, func(k farm.PlotKey) (any, error) {
		if err := s.Farm.InstallAsset(k.Row, k.Col, req.Asset); err != nil {
			return nil, err
		}
		return s.Farm.Plot(k.Row, k.Col)
	})
}

func (s *Server) handleRemove(c echo.Context) error {
	asset := c.Param("asset")
	return onPlot(c, func(k farm.PlotKey) (any, error) {
		if err := s.Farm.RemoveAsset(k.Row, k.Col, asset); err != nil {
			return nil, err
		}
		return s.Farm.Plot(k.Row, k.Col)
	})
}

func (s *Server) handleRemoveOne(c echo.Context) error {
	return onPlot(c, func(k farm.PlotKey) (any, error) {
		kind, err := s.Farm.RemoveOneAsset(k.Row, k.Col)
		if err != nil {
			return nil, err
		}
		return map[string]string{"removed": kind.String()}, nil
	})
}

func (s *Server) handlePlotProbability(c echo.Context) error {
	crop := c.QueryParam("crop")
	return onPlot(c, func(k farm.PlotKey) (any, error) {
		p, err := s.Farm.SuccessProbability(crop, k.Row, k.Col)
		if err != nil {
			return nil, err
		}
		return map[string]float64{"probability": p}, nil
	})
}

func (s *Server) handleSell(c echo.Context) error {
	var req struct {
		Crop    string `json:"crop"`
		Kg      int    `json:"kg"`
		Channel string `json:"channel"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid json")
	}
	result, err := s.Farm.Sell(req.Crop, req.Kg, req.Channel)
	return reply(c, result, err)
}

func (s *Server) handleSellAll(c echo.Context) error {
	result, err := s.Farm.SellAll()
	return reply(c, result, err)
}

func (s *Server) handleStoreCereals(c echo.Context) error {
	result, err := s.Farm.StoreCereals()
	return reply(c, result, err)
}

func (s *Server) handleStoreProduce(c echo.Context) error {
	result, err := s.Farm.StoreProduce()
	return reply(c, result, err)
}

func (s *Server) handleSupport(c echo.Context) error {
	result, err := s.Farm.ApplyGovernmentSupport()
	return reply(c, result, err)
}

func (s *Server) handleBuySeeds(c echo.Context) error {
	var req struct {
		Qty int `json:"qty"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid json")
	}
	result, err := s.Farm.BuySeeds(req.Qty)
	return reply(c, result, err)
}

func (s *Server) handleRefreshPrices(c echo.Context) error {
	result, err := s.Farm.RefreshPrices(c.Request().Context())
	return reply(c, result, err)
}

func (s *Server) handleAskMentor(c echo.Context) error {
	var req struct {
		Question string `json:"question"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid json")
	}
	return reply(c, s.Farm.AskMentor(c.Request().Context(), req.Question), nil)
}

type nameBody struct {
	Name string `json:"name"`
}

func (s *Server) bindName(c echo.Context) (string, bool) {
	var req nameBody
	if err := c.Bind(&req); err != nil {
		return "", false
	}
	return req.Name, true
}

func (s *Server) handleSetSoil(c echo.Context) error {
	name, ok := s.bindName(c)
	if !ok {
		return badRequest(c, "invalid json")
	}
	return reply(c, map[string]string{"soil": name}, s.Farm.SetSoilType(name))
}

func (s *Server) handleTogglePractice(c echo.Context) error {
	on, err := s.Farm.TogglePractice(c.Param("name"))
	return reply(c, map[string]bool{"enabled": on}, err)
}

func (s *Server) handleSetFertilizer(c echo.Context) error {
	name, ok := s.bindName(c)
	if !ok {
		return badRequest(c, "invalid json")
	}
	return reply(c, map[string]string{"fertilizer": name}, s.Farm.SetFertilizerType(name))
}

func (s *Server) handleSetWeather(c echo.Context) error {
	name, ok := s.bindName(c)
	if !ok {
		return badRequest(c, "invalid json")
	}
	return reply(c, map[string]string{"weather": name}, s.Farm.SetWeather(name))
}

func (s *Server) handleSetPH(c echo.Context) error {
	var req struct {
		PH any `json:"ph"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid json")
	}
	v := math.NaN()
	switch ph := req.PH.(type) {
	case float64:
		v = ph
	case string:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(ph), 64); err == nil {
			v = parsed
		}
	}
	ph, err := s.Farm.SetPH(v)
	return reply(c, map[string]float64{"ph": ph}, err)
}

func (s *Server) handleSelectCrop(c echo.Context) error {
	name, ok := s.bindName(c)
	if !ok {
		return badRequest(c, "invalid json")
	}
	return reply(c, map[string]string{"crop": name}, s.Farm.SelectCrop(name))
}

func (s *Server) handleExport(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="farm.xlsx"`)
	c.Response().WriteHeader(http.StatusOK)
	return report.Write(c.Response(), s.Farm.View())
}
