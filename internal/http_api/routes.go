package http_api

// routes sets up the routes for the HTTP server.
func (s *HTTPServer) routes() {
	s.router.GET("/health", s.health)

	s.router.GET("/api/v1/utxos", s.utxos)
	s.router.POST("/api/v1/broadcast", s.broadcast)
	s.router.GET("/api/v1/fee", s.fee)
	s.router.GET("/api/v1/tx/:txid", s.transaction)
	s.router.POST("/api/v1/watch", s.watch)
}
