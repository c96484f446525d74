package fakeapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"math"
	"net/http"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/route-planner/internal/models"
)

// PageSize - размер страницы списков с пагинацией.
const PageSize = 10

// Attractions - фиксированный каталог достопримечательностей.
var Attractions = []models.Attraction{
	{ID: 1, Name: "Эрмитаж", Category: "museum", Latitude: "59.939864", Longitude: "30.314566", Rating: "4.9"},
	{ID: 2, Name: "Исаакиевский собор", Category: "church", Latitude: "59.934082", Longitude: "30.306105", Rating: "4.8"},
	{ID: 3, Name: "Летний сад", Category: "park", Latitude: "59.944692", Longitude: "30.336640", Rating: "4.7"},
	{ID: 4, Name: "Русский музей", Category: "museum", Latitude: "59.938631", Longitude: "30.332258", Rating: "4.8"},
	{ID: 5, Name: "Петропавловская крепость", Category: "history", Latitude: "59.950176", Longitude: "30.316654", Rating: "4.8"},
}

type routeRec struct {
	owner    int64
	favorite bool
	route    models.Route
}

func withUser(ctx context.Context, uid int64) context.Context {
	return context.WithValue(ctx, ctxUserKey{}, uid)
}

func userFrom(ctx context.Context) int64 {
	uid, _ := ctx.Value(ctxUserKey{}).(int64)
	return uid
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Malformed JSON"})
		return false
	}

	return true
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
}

// --- auth ---

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in models.LoginRequest
	if !decode(w, r, &in) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc := s.accounts[strings.ToLower(in.Email)]
	if acc == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "User not found"})
		return
	}

	if bcrypt.CompareHashAndPassword(acc.passHash, []byte(in.Password)) != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid password"})
		return
	}

	access, refresh := s.issueLocked(acc.user.ID)
	u := acc.user
	writeJSON(w, http.StatusOK, models.AuthPayload{Access: access, Refresh: refresh, User: &u})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in models.RegisterInput
	if !decode(w, r, &in) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case strings.TrimSpace(in.Email) == "":
		writeJSON(w, http.StatusBadRequest, map[string][]string{"email": {"This field may not be blank."}})
		return
	case s.accounts[strings.ToLower(in.Email)] != nil:
		writeJSON(w, http.StatusBadRequest, map[string][]string{"email": {"user with this email already exists."}})
		return
	case strings.TrimSpace(in.Username) == "":
		writeJSON(w, http.StatusBadRequest, map[string][]string{"username": {"This field may not be blank."}})
		return
	case len(in.Password) < 8:
		writeJSON(w, http.StatusBadRequest, map[string][]string{"password": {"This password is too short."}})
		return
	case in.Password2 != "" && in.Password2 != in.Password:
		writeJSON(w, http.StatusBadRequest, map[string]string{"password": "Password fields didn't match."})
		return
	}

	acc := s.addUserLocked(in.Email, in.Username, in.Password)
	acc.user.FirstName = in.FirstName
	acc.user.LastName = in.LastName

	access, refresh := s.issueLocked(acc.user.ID)
	u := acc.user
	writeJSON(w, http.StatusCreated, models.AuthPayload{Access: access, Refresh: refresh, User: &u})
}

func (s *Server) refreshToken(w http.ResponseWriter, r *http.Request) {
	var in models.RefreshRequest
	if !decode(w, r, &in) {
		return
	}

	s.waitRefreshGate()

	s.mu.Lock()
	defer s.mu.Unlock()

	uid, ok := s.refresh[in.Refresh]
	if !ok || s.failRefresh {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"detail": "Token is invalid or expired",
			"code":   "token_not_valid",
		})
		return
	}

	if !s.rotateRefresh {
		writeJSON(w, http.StatusOK, models.RefreshPayload{Access: s.accessLocked(uid)})
		return
	}

	delete(s.refresh, in.Refresh)
	access, refresh := s.issueLocked(uid)
	writeJSON(w, http.StatusOK, models.RefreshPayload{Access: access, Refresh: refresh})
}

// waitRefreshGate блокирует обмен, пока не набрано нужное число ответов 401.
func (s *Server) waitRefreshGate() {
	deadline := time.Now().Add(2 * time.Second)

	for time.Now().Before(deadline) {
		s.mu.Lock()
		gate, seen := s.refreshGate, s.unauth401
		s.mu.Unlock()

		if gate == 0 {
			return
		}
		if seen >= gate {
			// даём опоздавшим клиентам дойти до обмена
			time.Sleep(50 * time.Millisecond)
			return
		}

		time.Sleep(5 * time.Millisecond)
	}
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	u := s.byID[userFrom(r.Context())].user
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, u)
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	var in models.ProfileUpdate
	if !decode(w, r, &in) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc := s.byID[userFrom(r.Context())]
	if in.Phone != nil && len(*in.Phone) > 20 {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"phone": {"Ensure this field has no more than 20 characters."}})
		return
	}

	for dst, src := range map[*string]*string{
		&acc.user.FirstName: in.FirstName,
		&acc.user.LastName:  in.LastName,
		&acc.user.Phone:     in.Phone,
		&acc.user.Bio:       in.Bio,
	} {
		if src != nil {
			*dst = *src
		}
	}

	writeJSON(w, http.StatusOK, acc.user)
}

// --- routes ---

func (s *Server) ownRoutesLocked(uid int64) []models.Route {
	ids := make([]int64, 0, len(s.routes))
	for id, rec := range s.routes {
		if rec.owner == uid {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	out := make([]models.Route, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.routes[id].view())
	}

	return out
}

func (rec *routeRec) view() models.Route {
	r := rec.route
	r.IsFavorite = rec.favorite
	r.AttractionsCount = len(r.RouteAttractions)
	return r
}

func (s *Server) routeFor(w http.ResponseWriter, r *http.Request) *routeRec {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		notFound(w)
		return nil
	}

	rec := s.routes[id]
	if rec == nil || rec.owner != userFrom(r.Context()) {
		notFound(w)
		return nil
	}

	return rec
}

func (s *Server) newRouteLocked(uid int64, name, desc string, hours float64, attractionIDs []int64) *routeRec {
	s.nextID++

	rec := &routeRec{owner: uid, route: models.Route{
		ID:            s.nextID,
		Name:          name,
		Description:   desc,
		DurationHours: json.Number(strconv.FormatFloat(hours, 'f', -1, 64)),
		CreatedAt:     time.Now().UTC().Truncate(time.Second),
	}}
	rec.route.RouteAttractions = routePoints(attractionIDs)
	rec.route.DistanceKM = json.Number(strconv.FormatFloat(1.5*float64(len(attractionIDs)), 'f', 1, 64))

	s.routes[rec.route.ID] = rec

	return rec
}

func routePoints(ids []int64) []models.RouteAttraction {
	out := make([]models.RouteAttraction, 0, len(ids))
	for i, id := range ids {
		for _, a := range Attractions {
			if a.ID == id {
				out = append(out, models.RouteAttraction{ID: int64(i + 1), Order: i + 1, VisitDuration: 60, Attraction: a})
			}
		}
	}

	return out
}

func (s *Server) listRoutes(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	routes := s.ownRoutesLocked(userFrom(r.Context()))
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, models.Page[models.Route]{Count: len(routes), Results: routes})
}

func (s *Server) createRoute(w http.ResponseWriter, r *http.Request) {
	var in models.RouteInput
	if !decode(w, r, &in) {
		return
	}

	if strings.TrimSpace(in.Name) == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"name": {"This field may not be blank."}})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.newRouteLocked(userFrom(r.Context()), in.Name, in.Description, in.DurationHours, in.Attractions)
	rec.route.IsPublic = in.IsPublic

	writeJSON(w, http.StatusCreated, rec.view())
}

func (s *Server) generateRoute(w http.ResponseWriter, r *http.Request) {
	var in models.GenerateRouteInput
	if !decode(w, r, &in) {
		return
	}

	switch in.GeneratorType {
	case models.GeneratorHybrid, models.GeneratorLLM, models.GeneratorAlgorithmic:
	default:
		writeJSON(w, http.StatusBadRequest, map[string][]string{"generator_type": {`"` + in.GeneratorType + `" is not a valid choice.`}})
		return
	}

	if in.DurationHours <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"duration_hours": {"Ensure this value is greater than 0."}})
		return
	}

	name := in.Name
	if name == "" {
		name = "Маршрут на " + strconv.FormatFloat(in.DurationHours, 'f', -1, 64) + " ч"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.newRouteLocked(userFrom(r.Context()), name, in.Description, in.DurationHours, []int64{1, 4, 3})

	writeJSON(w, http.StatusCreated, rec.view())
}

func (s *Server) getRoute(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec := s.routeFor(w, r); rec != nil {
		writeJSON(w, http.StatusOK, rec.view())
	}
}

func (s *Server) updateRoute(w http.ResponseWriter, r *http.Request) {
	var in models.RouteInput
	if !decode(w, r, &in) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.routeFor(w, r)
	if rec == nil {
		return
	}

	rec.route.Name = in.Name
	rec.route.Description = in.Description
	rec.route.IsPublic = in.IsPublic
	rec.route.DurationHours = json.Number(strconv.FormatFloat(in.DurationHours, 'f', -1, 64))
	if in.Attractions != nil {
		rec.route.RouteAttractions = routePoints(in.Attractions)
	}

	writeJSON(w, http.StatusOK, rec.view())
}

func (s *Server) deleteRoute(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.routeFor(w, r)
	if rec == nil {
		return
	}

	delete(s.routes, rec.route.ID)
	w.WriteHeader(http.StatusNoContent)
}

// optimizeRoute упорядочивает точки по широте с севера на юг.
func (s *Server) optimizeRoute(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.routeFor(w, r)
	if rec == nil {
		return
	}

	points := rec.route.RouteAttractions
	sort.SliceStable(points, func(i, j int) bool {
		li, _ := points[i].Attraction.Latitude.Float64()
		lj, _ := points[j].Attraction.Latitude.Float64()
		return li > lj
	})
	for i := range points {
		points[i].Order = i + 1
	}

	writeJSON(w, http.StatusOK, rec.view())
}

func (s *Server) favorites(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Route, 0)
	for _, rt := range s.ownRoutesLocked(userFrom(r.Context())) {
		if rt.IsFavorite {
			out = append(out, rt)
		}
	}

	// избранное отдаётся голым массивом, без пагинации
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) toggleFavorite(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.routeFor(w, r)
	if rec == nil {
		return
	}

	rec.favorite = !rec.favorite
	writeJSON(w, http.StatusOK, map[string]bool{"is_favorite": rec.favorite})
}

// --- attractions ---

func (s *Server) listAttractions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	search := strings.ToLower(q.Get("search"))
	category := q.Get("category")

	found := make([]models.Attraction, 0, len(Attractions))
	for _, a := range Attractions {
		if search != "" && !strings.Contains(strings.ToLower(a.Name), search) {
			continue
		}
		if category != "" && a.Category != category {
			continue
		}
		found = append(found, a)
	}

	page := 1
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		page = p
	}

	from := min((page-1)*PageSize, len(found))
	to := min(from+PageSize, len(found))

	writeJSON(w, http.StatusOK, models.Page[models.Attraction]{Count: len(found), Results: found[from:to]})
}

func (s *Server) getAttraction(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	for _, a := range Attractions {
		if a.ID == id {
			writeJSON(w, http.StatusOK, a)
			return
		}
	}

	notFound(w)
}

// nearbyAttractions - грубая выборка по квадрату radius км вокруг точки.
func (s *Server) nearbyAttractions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(q.Get("lng"), 64)
	if errLat != nil || errLng != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "lat and lng are required"})
		return
	}

	radius, err := strconv.ParseFloat(q.Get("radius"), 64)
	if err != nil || radius <= 0 {
		radius = 5
	}
	deg := radius / 111.0

	out := make([]models.Attraction, 0)
	for _, a := range Attractions {
		alat, _ := a.Latitude.Float64()
		alng, _ := a.Longitude.Float64()
		if math.Abs(alat-lat) <= deg && math.Abs(alng-lng) <= deg {
			out = append(out, a)
		}
	}

	writeJSON(w, http.StatusOK, out)
}

// --- analytics ---

func (s *Server) popular(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 10
	}

	s.mu.Lock()
	routes := s.ownRoutesLocked(userFrom(r.Context()))
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, routes[:min(limit, len(routes))])
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := models.RouteStats{TotalRoutes: len(s.routes), AvgDuration: "0"}
	var total float64
	for _, rec := range s.routes {
		if rec.route.IsPublic {
			st.PublicRoutes++
		}
		h, _ := rec.route.DurationHours.Float64()
		total += h
	}
	if len(s.routes) > 0 {
		st.AvgDuration = json.Number(strconv.FormatFloat(total/float64(len(s.routes)), 'f', 2, 64))
	}

	writeJSON(w, http.StatusOK, st)
}

func (s *Server) attractionStats(w http.ResponseWriter, _ *http.Request) {
	byCategory := make(map[string]int)
	for _, a := range Attractions {
		byCategory[a.Category]++
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total_attractions": len(Attractions),
		"by_category":       byCategory,
	})
}

// chart отдаёт «картинку» графика: base64 от имени графика.
func (s *Server) chart(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	switch kind {
	case "popularity", "categories", "ratings":
	default:
		notFound(w)
		return
	}

	writeJSON(w, http.StatusOK, models.Chart{Image: ChartImage(kind)})
}

// ChartImage - изображение, которое сервер отдаёт для графика kind.
func ChartImage(kind string) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte(kind))
}

func (s *Server) userAnalytics(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	routes := s.ownRoutesLocked(userFrom(r.Context()))
	s.mu.Unlock()

	favs := 0
	for _, rt := range routes {
		if rt.IsFavorite {
			favs++
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"routes_created":  len(routes),
		"favorite_routes": favs,
	})
}
