package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskboard-api/internal/constants"
	"github.com/yukikurage/taskboard-api/internal/database"
	"github.com/yukikurage/taskboard-api/internal/models"
	"github.com/yukikurage/taskboard-api/internal/visibility"
)

// RequireProjectAccess checks the visibility policy for the project named in
// the URL and stores it in the context.
func RequireProjectAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		projectIDStr := c.Param("id")
		projectID, err := strconv.ParseUint(projectIDStr, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid project ID",
			})
			c.Abort()
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
			c.Abort()
			return
		}

		db := database.GetDB()

		var actor models.User
		if err := db.First(&actor, userID).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
			c.Abort()
			return
		}

		var project models.Project
		if err := db.First(&project, projectID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Project not found",
			})
			c.Abort()
			return
		}

		allowed, err := visibility.NewEvaluator(db).CanViewProject(&actor, &project)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to check access",
			})
			c.Abort()
			return
		}
		if !allowed {
			// Return 404 instead of 403 to avoid leaking project existence
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Project not found",
			})
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyProject, project)
		c.Next()
	}
}

// RequireProjectOwner ensures the current user owns the project already
// loaded by RequireProjectAccess. Ownership failures surface plainly as 403;
// existence was already established.
func RequireProjectOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := GetUserID(c)

		projectInterface, exists := c.Get(constants.ContextKeyProject)
		if !exists {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Project not found in context",
			})
			c.Abort()
			return
		}
		project := projectInterface.(models.Project)

		var member models.ProjectMember
		err := database.GetDB().
			Where("project_id = ? AND user_id = ? AND role = ?", project.ID, userID, models.ProjectRoleOwner).
			First(&member).Error
		if err != nil {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Only the project owner can perform this action",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
