package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRegionCRUD(t *testing.T) {
	d := setupApp(t)

	rr := httptest.NewRecorder()
	d.handler.ServeHTTP(rr, authReq(http.MethodPost, "/regions", `{"name":"Jihomoravský kraj"}`, testToken))
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d; body = %s", rr.Code, rr.Body.String())
	}
	var created regionResponse
	json.NewDecoder(rr.Body).Decode(&created)
	if created.ID == 0 || created.Name != "Jihomoravský kraj" {
		t.Fatalf("created = %+v", created)
	}

	rr = httptest.NewRecorder()
	d.handler.ServeHTTP(rr, authReq(http.MethodPut, "/regions/1", `{"name":"Praha"}`, testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("update status = %d; body = %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	d.handler.ServeHTTP(rr, authReq(http.MethodGet, "/regions", "", testToken))
	var list struct {
		Regions []regionResponse `json:"regions"`
	}
	json.NewDecoder(rr.Body).Decode(&list)
	if len(list.Regions) != 1 || list.Regions[0].Name != "Praha" {
		t.Fatalf("regions = %+v", list.Regions)
	}

	rr = httptest.NewRecorder()
	d.handler.ServeHTTP(rr, authReq(http.MethodDelete, "/regions/1", "", testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status = %d; body = %s", rr.Code, rr.Body.String())
	}
}

func TestCreateRegion_MissingName(t *testing.T) {
	d := setupApp(t)

	rr := httptest.NewRecorder()
	d.handler.ServeHTTP(rr, authReq(http.MethodPost, "/regions", `{}`, testToken))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestDeleteRegion_WithSchoolsConflicts(t *testing.T) {
	d := setupApp(t)

	reg, err := d.store.CreateRegion("Praha")
	if err != nil {
		t.Fatalf("CreateRegion: %v", err)
	}
	if _, err := d.store.CreateSchool("ZŠ Karlín", reg.ID); err != nil {
		t.Fatalf("CreateSchool: %v", err)
	}

	rr := httptest.NewRecorder()
	d.handler.ServeHTTP(rr, authReq(http.MethodDelete, "/regions/1", "", testToken))
	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409; body = %s", rr.Code, rr.Body.String())
	}
}

func TestSchoolCRUD(t *testing.T) {
	d := setupApp(t)

	if _, err := d.store.CreateRegion("Praha"); err != nil {
		t.Fatalf("CreateRegion: %v", err)
	}

	rr := httptest.NewRecorder()
	d.handler.ServeHTTP(rr, authReq(http.MethodPost, "/schools", `{"name":"ZŠ Karlín","region_id":1}`, testToken))
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d; body = %s", rr.Code, rr.Body.String())
	}
	var created schoolResponse
	json.NewDecoder(rr.Body).Decode(&created)
	if created.RegionID != 1 {
		t.Fatalf("created = %+v", created)
	}

	rr = httptest.NewRecorder()
	d.handler.ServeHTTP(rr, authReq(http.MethodGet, "/schools?region_id=1", "", testToken))
	var list struct {
		Schools []schoolResponse `json:"schools"`
	}
	json.NewDecoder(rr.Body).Decode(&list)
	if len(list.Schools) != 1 {
		t.Fatalf("schools = %+v", list.Schools)
	}

	rr = httptest.NewRecorder()
	d.handler.ServeHTTP(rr, authReq(http.MethodDelete, "/schools/1", "", testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status = %d; body = %s", rr.Code, rr.Body.String())
	}
}

func TestCreateSchool_UnknownRegion(t *testing.T) {
	d := setupApp(t)

	rr := httptest.NewRecorder()
	d.handler.ServeHTTP(rr, authReq(http.MethodPost, "/schools", `{"name":"ZŠ","region_id":99}`, testToken))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body = %s", rr.Code, rr.Body.String())
	}
}

func TestRateLimit(t *testing.T) {
	limited := RateLimit(1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make(map[int]int)
	for i := 0; i < 5; i++ {
		rr := httptest.NewRecorder()
		limited.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/chat", nil))
		codes[rr.Code]++
	}
	if codes[http.StatusTooManyRequests] == 0 {
		t.Errorf("expected some 429 responses, got %v", codes)
	}
	if codes[http.StatusOK] == 0 {
		t.Errorf("expected some 200 responses, got %v", codes)
	}
}

func TestRateLimit_Disabled(t *testing.T) {
	unlimited := RateLimit(0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 20; i++ {
		rr := httptest.NewRecorder()
		unlimited.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/chat", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, rr.Code)
		}
	}
}
