package builder

// Built-in route scaffold. Rendered through the materializer against a
// narrow subtree with <route_name> in the substitution context.

const routeInitTemplate = ``

const routeRouterTemplate = `from fastapi import APIRouter

from src.<route_name>.schemas import <route_name_class>Response

router = APIRouter(tags=["<route_name>"])


@router.get("/", response_model=list[<route_name_class>Response])
def list_<route_name>():
    return []
`

const routeSchemasTemplate = `from pydantic import BaseModel


class <route_name_class>Base(BaseModel):
    name: str


class <route_name_class>Response(<route_name_class>Base):
    id: int
`

const routeCrudTemplate = `from src.<route_name>.schemas import <route_name_class>Response

_store: dict[int, <route_name_class>Response] = {}


def list_all() -> list[<route_name_class>Response]:
    return list(_store.values())
`

// routeScaffoldFiles maps template-relative paths (under the route
// directory) to content. Paths carry the template marker so the
// materializer substitutes and strips them.
var routeScaffoldFiles = map[string]string{
	"<route_name>/__init__.py":    routeInitTemplate,
	"<route_name>/router.py-tpl":  routeRouterTemplate,
	"<route_name>/schemas.py-tpl": routeSchemasTemplate,
	"<route_name>/crud.py-tpl":    routeCrudTemplate,
}

// routeRegistration is appended to the aggregator file, already rendered.
const routeRegistration = `
from src.<route_name>.router import router as <route_name>_router

app.include_router(<route_name>_router, prefix="/<route_name>")
`
