package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"flavoriz-backend-go/internal/catalog"
	"flavoriz-backend-go/internal/core"
	"flavoriz-backend-go/internal/middleware"
)

// Services bundles what the handlers depend on.
type Services struct {
	Identity  core.IdentityService
	Plans     core.MealPlanService
	Saved     core.SavedMealService
	Directory core.DirectoryService
	Catalog   catalog.Client
}

// SetupRoutes configures all the application routes with their handlers and middleware.
// Global middleware (logging, recovery, CORS, metrics) is expected to be applied to
// router before this is called, typically in main.go.
func SetupRoutes(router *gin.Engine, services Services, logger *zap.Logger) {
	if services.Identity == nil || services.Plans == nil || services.Saved == nil ||
		services.Directory == nil || services.Catalog == nil {
		logger.Fatal("CRITICAL_SETUP_ERROR: a service is not initialized, routes will not be set up.")
	}
	authMW := middleware.NewAuthMiddleware(services.Identity, logger)

	authHandler := NewAuthHandler(services.Identity, logger)
	userHandler := NewUserHandler(services.Identity, services.Directory, logger)
	planHandler := NewMealPlanHandler(services.Plans, logger)
	savedHandler := NewSavedMealHandler(services.Saved, logger)
	catalogHandler := NewCatalogHandler(services.Catalog, logger)

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/signup", authHandler.SignUp)
			authGroup.POST("/signin", authHandler.SignIn)
			authGroup.POST("/password-reset", authHandler.RequestPasswordReset)
			authGroup.POST("/signout", authMW.VerifyToken(), authHandler.SignOut)
		}

		usersGroup := apiV1.Group("/users", authMW.VerifyToken())
		{
			// Called after client-side sign-up to ensure the backend profile exists.
			usersGroup.POST("/initialize", authHandler.InitializeUserProfile)
			usersGroup.GET("/me", userHandler.GetCurrentUserProfile)
			usersGroup.PATCH("/me", userHandler.UpdateCurrentUserProfile)
			usersGroup.GET("/me/permissions", userHandler.GetPermissions)
			usersGroup.GET("/search", userHandler.SearchUsers)
			usersGroup.PUT("/:userId/role", userHandler.UpdateRole)
		}

		recipesGroup := apiV1.Group("/recipes")
		{
			recipesGroup.GET("", catalogHandler.ListRecipes)
			recipesGroup.GET("/random", catalogHandler.RandomRecipes)
			recipesGroup.GET("/categories", catalogHandler.ListCategories)
			recipesGroup.GET("/:recipeId", catalogHandler.GetRecipe)
		}

		curatedGroup := apiV1.Group("/curated-plans")
		{
			curatedGroup.GET("", catalogHandler.ListCuratedPlans)
			curatedGroup.GET("/:planId/meals", catalogHandler.CuratedPlanMeals)
		}

		// Reading a single plan is open to anonymous callers; visibility is
		// decided by the service.
		apiV1.GET("/meal-plans/:planId", authMW.OptionalToken(), planHandler.GetPlan)

		plansGroup := apiV1.Group("/meal-plans", authMW.VerifyToken())
		{
			plansGroup.POST("", planHandler.CreatePlan)
			plansGroup.GET("", planHandler.ListPlans)
			plansGroup.PATCH("/:planId", planHandler.UpdatePlan)
			plansGroup.DELETE("/:planId", planHandler.DeletePlan)
			plansGroup.POST("/:planId/duplicate", planHandler.DuplicatePlan)
			plansGroup.POST("/:planId/meals", planHandler.AddMeal)
			plansGroup.DELETE("/:planId/meals/:mealId", planHandler.RemoveMeal)
			plansGroup.POST("/:planId/collaborators", planHandler.AddCollaborator)
			plansGroup.DELETE("/:planId/collaborators/:userId", planHandler.RemoveCollaborator)
		}

		savedGroup := apiV1.Group("/saved-meals", authMW.VerifyToken())
		{
			savedGroup.GET("", savedHandler.ListSaved)
			savedGroup.POST("", savedHandler.SaveMeal)
			savedGroup.GET("/:recipeId", savedHandler.IsSaved)
			savedGroup.DELETE("/:recipeId", savedHandler.UnsaveMeal)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "Flavoriz backend is healthy."})
	})

	logger.Info("API routes configured successfully under /api/v1 and /health.")
}
