package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/camden-git/vanshavalibackend/database"
	"github.com/camden-git/vanshavalibackend/kinship"
	"github.com/camden-git/vanshavalibackend/models"
	"github.com/camden-git/vanshavalibackend/realtime"
	"github.com/camden-git/vanshavalibackend/repository"
	"github.com/camden-git/vanshavalibackend/services"
)

type MemberHandler struct {
	Members repository.MemberRepositoryInterface
	Service *services.RelationService
	DB      *sql.DB
	Hub     realtime.Broadcaster
}

type memberRequest struct {
	SerNo          int64   `json:"serNo"`
	FirstName      string  `json:"firstName"`
	MiddleName     *string `json:"middleName"`
	LastName       string  `json:"lastName"`
	Vansh          string  `json:"vansh"`
	Gender         string  `json:"gender"`
	FatherSerNo    *int64  `json:"fatherSerNo"`
	MotherSerNo    *int64  `json:"motherSerNo"`
	SpouseSerNo    *int64  `json:"spouseSerNo"`
	ChildrenSerNos []int64 `json:"childrenSerNos"`
	Level          int     `json:"level"`
	IsAlive        *bool   `json:"isAlive"`
}

func (req *memberRequest) validate() error {
	if strings.TrimSpace(req.FirstName) == "" {
		return errors.New("missing required field: firstName")
	}
	if strings.TrimSpace(req.LastName) == "" {
		return errors.New("missing required field: lastName")
	}
	for _, ref := range []*int64{req.FatherSerNo, req.MotherSerNo, req.SpouseSerNo} {
		if ref != nil && *ref <= 0 {
			return fmt.Errorf("member references must be positive, got %d", *ref)
		}
	}
	for _, c := range req.ChildrenSerNos {
		if c <= 0 {
			return fmt.Errorf("childrenSerNos must be positive, got %d", c)
		}
	}
	return nil
}

func (req *memberRequest) apply(m *models.Member) {
	m.FirstName = strings.TrimSpace(req.FirstName)
	m.MiddleName = req.MiddleName
	m.LastName = strings.TrimSpace(req.LastName)
	m.Vansh = req.Vansh
	m.Gender = req.Gender
	m.FatherSerNo = req.FatherSerNo
	m.MotherSerNo = req.MotherSerNo
	m.SpouseSerNo = req.SpouseSerNo
	m.ChildrenSerNos = req.ChildrenSerNos
	m.Level = req.Level
	m.IsAlive = req.IsAlive == nil || *req.IsAlive
}

// ListMembers handles GET /api/family/members?sort=serno_asc|name_asc|name_nat
func (mh *MemberHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	order := r.URL.Query().Get("sort")
	if order == "" {
		order = database.DefaultSortOrder
	}
	if !database.IsValidSortOrder(order) {
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidInput, "invalid sort order: "+order)
		return
	}

	members, err := mh.Members.ListAll()
	if err != nil {
		writeServiceError(w, "list members", err)
		return
	}
	if members == nil {
		members = []models.Member{}
	}
	database.SortMembers(members, order)
	writeJSON(w, http.StatusOK, members)
}

func (mh *MemberHandler) GetMember(w http.ResponseWriter, r *http.Request) {
	serNo, err := kinship.ParseSerNo(chi.URLParam(r, "serNo"))
	if err != nil {
		writeServiceError(w, "get member", err)
		return
	}
	member, err := mh.Members.GetBySerNo(serNo)
	if err != nil {
		writeServiceError(w, "get member", notFoundAs(serNo, err))
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func (mh *MemberHandler) CreateMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidInput, "invalid request body: "+err.Error())
		return
	}
	if req.SerNo <= 0 {
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidInput, "serNo must be a positive integer")
		return
	}
	if err := req.validate(); err != nil {
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidInput, err.Error())
		return
	}

	if _, err := mh.Members.GetBySerNo(req.SerNo); err == nil {
		WriteAPIError(w, http.StatusConflict, "conflict", fmt.Sprintf("member %d already exists", req.SerNo))
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		writeServiceError(w, "create member", err)
		return
	}

	member := &models.Member{SerNo: req.SerNo}
	req.apply(member)
	if err := mh.Members.Create(member); err != nil {
		writeServiceError(w, "create member", err)
		return
	}
	log.Printf("created member %d (%s %s)", member.SerNo, member.FirstName, member.LastName)
	invalidateRelations(mh.Service, mh.DB, mh.Hub, realtime.Event{Type: realtime.EventMemberCreated, SerNo: member.SerNo})

	writeJSON(w, http.StatusCreated, member)
}

func (mh *MemberHandler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	serNo, err := kinship.ParseSerNo(chi.URLParam(r, "serNo"))
	if err != nil {
		writeServiceError(w, "update member", err)
		return
	}

	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidInput, "invalid request body: "+err.Error())
		return
	}
	if req.SerNo != 0 && req.SerNo != serNo {
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidInput, "serNo in body does not match the URL")
		return
	}
	if err := req.validate(); err != nil {
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidInput, err.Error())
		return
	}

	member, err := mh.Members.GetBySerNo(serNo)
	if err != nil {
		writeServiceError(w, "update member", notFoundAs(serNo, err))
		return
	}
	req.apply(member)
	if err := mh.Members.Update(member); err != nil {
		writeServiceError(w, "update member", notFoundAs(serNo, err))
		return
	}
	invalidateRelations(mh.Service, mh.DB, mh.Hub, realtime.Event{Type: realtime.EventMemberUpdated, SerNo: serNo})

	writeJSON(w, http.StatusOK, member)
}

func (mh *MemberHandler) DeleteMember(w http.ResponseWriter, r *http.Request) {
	serNo, err := kinship.ParseSerNo(chi.URLParam(r, "serNo"))
	if err != nil {
		writeServiceError(w, "delete member", err)
		return
	}
	if err := mh.Members.Delete(serNo); err != nil {
		writeServiceError(w, "delete member", notFoundAs(serNo, err))
		return
	}
	log.Printf("deleted member %d", serNo)
	invalidateRelations(mh.Service, mh.DB, mh.Hub, realtime.Event{Type: realtime.EventMemberDeleted, SerNo: serNo})

	w.WriteHeader(http.StatusNoContent)
}

// notFoundAs turns a repository miss into the engine's not found error so the
// body names the member.
func notFoundAs(serNo int64, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &kinship.NotFoundError{SerNo: serNo}
	}
	return err
}
