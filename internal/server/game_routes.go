package server

// RegisterGameRoutes registers the crash game routes used by the view.
func (s *FiberServer) RegisterGameRoutes() {
	api := s.App.Group("/api/v1")

	g := api.Group("/game")
	g.Get("/state", s.getGameStateHandler)
	g.Get("/history", s.getHistoryHandler)
	g.Post("/bet", s.placeBetHandler)
	g.Post("/cashout/:slot", s.cashoutHandler)
}
