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

// RequireTaskAccess checks the visibility policy for the task named in the
// URL. The same evaluator gates notification delivery, so a task a user can
// open is exactly a task they can be notified about.
func RequireTaskAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		taskIDStr := c.Param("id")
		taskID, err := strconv.ParseUint(taskIDStr, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid task ID",
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

		var task models.Task
		if err := db.
			Preload("Creator").
			Preload("Assignee").
			Preload("Project").
			First(&task, taskID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Task not found",
			})
			c.Abort()
			return
		}

		allowed, err := visibility.NewEvaluator(db).CanViewTask(&actor, &task)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to check access",
			})
			c.Abort()
			return
		}
		if !allowed {
			// Return 404 instead of 403 to avoid leaking task existence
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Task not found",
			})
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyTask, task)
		c.Next()
	}
}
