package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"librarium/internal/entities"
)

// MemberStore covers the membership operations the controller needs.
type MemberStore interface {
	CreateMember(member *entities.Member) (*entities.Member, error)
	GetMemberByID(id uint) (*entities.Member, error)
	ListMembers() ([]entities.Member, error)
	SearchMembers(query string) ([]entities.Member, error)
	SetActive(id uint, active bool) error
}

// MemberRegistrar creates accounts with password credentials. Nil when
// authentication is disabled.
type MemberRegistrar interface {
	RegisterMember(member *entities.Member, password string) (*entities.Member, error)
}

type MembersController struct {
	store     MemberStore
	registrar MemberRegistrar
}

func NewMembersController(store MemberStore, registrar MemberRegistrar) *MembersController {
	return &MembersController{
		store:     store,
		registrar: registrar,
	}
}

type createMemberRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

func (controller *MembersController) CreateMember(c *gin.Context) {
	var req createMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "username and email are required")
		return
	}

	member := &entities.Member{
		Username: req.Username,
		Email:    req.Email,
		FullName: req.FullName,
		Phone:    req.Phone,
		Address:  req.Address,
		Role:     entities.MemberRole(req.Role),
	}

	var created *entities.Member
	var err error
	if req.Password != "" && controller.registrar != nil {
		created, err = controller.registrar.RegisterMember(member, req.Password)
	} else {
		created, err = controller.store.CreateMember(member)
	}
	if err != nil {
		respondDomainError(c, err, "create member")
		return
	}

	respondCreated(c, created)
}

func (controller *MembersController) GetAllMembers(c *gin.Context) {
	members, err := controller.store.ListMembers()
	if err != nil {
		respondInternalError(c, err, "list members")
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"members": members, "count": len(members)})
}

func (controller *MembersController) GetMember(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	member, err := controller.store.GetMemberByID(id)
	if err != nil {
		respondDomainError(c, err, "get member")
		return
	}
	c.IndentedJSON(http.StatusOK, member)
}

func (controller *MembersController) SearchMembers(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		respondBadRequest(c, "q query parameter is required")
		return
	}

	members, err := controller.store.SearchMembers(query)
	if err != nil {
		respondInternalError(c, err, "search members")
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"members": members, "count": len(members)})
}

func (controller *MembersController) SetActive(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "is_active is required")
		return
	}

	if err := controller.store.SetActive(id, *req.IsActive); err != nil {
		respondDomainError(c, err, "set member active")
		return
	}

	respondSuccess(c, "member updated")
}
