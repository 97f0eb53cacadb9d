package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campusbus/identity/internal/service"
)

type registerStudentRequest struct {
	RegNumber     string `json:"regNumber"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Password      string `json:"password"`
	Course        string `json:"course"`
	AdmissionYear int    `json:"admissionYear"`
}

type registerStaffRequest struct {
	StaffID    string `json:"staffId"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Password   string `json:"password"`
	Department string `json:"department"`
}

func (h HandlerSet) RegisterStudent(c *gin.Context) {
	var req registerStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.registrations.RegisterStudent(c.Request.Context(), service.RegisterStudentInput{
		RegNumber:     req.RegNumber,
		Email:         req.Email,
		Name:          req.Name,
		Password:      req.Password,
		Course:        req.Course,
		AdmissionYear: req.AdmissionYear,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": newUserResponse(record)})
}

func (h HandlerSet) RegisterStaff(c *gin.Context) {
	var req registerStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.registrations.RegisterStaff(c.Request.Context(), service.RegisterStaffInput{
		StaffID:    req.StaffID,
		Email:      req.Email,
		Name:       req.Name,
		Password:   req.Password,
		Department: req.Department,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": newUserResponse(record)})
}
