package testutil

import (
	"path/filepath"
	"testing"

	"github.com/starford/stackscope/internal/source"
)

// UIFiles is a small Flutter project: two widgets, one bloc, and a call
// outside any class.
var UIFiles = map[string]string{
	"lib/login.dart": `import 'package:flutter/material.dart';

class LoginPage extends StatelessWidget {
  @override
  Widget build(BuildContext context) {
    return BlocProvider<AuthBloc>(
      create: (_) => AuthBloc(),
      child: TextFormField(validator: Validators.required),
    );
  }
}

class ProfilePage extends StatefulWidget {
  @override
  State<ProfilePage> createState() => _ProfilePageState();
}

class _ProfilePageState extends State<ProfilePage> {
  final _dio = Dio();

  Future<void> load() async {
    await _dio.get('/users');
    await _dio.post('/users');
  }
}
`,
	"lib/auth_bloc.dart": `abstract class AuthEvent {}
class LoginRequested extends AuthEvent {}
abstract class AuthState {}
class AuthInitial extends AuthState {}

class AuthBloc extends Bloc<AuthEvent, AuthState> {
  AuthBloc() : super(AuthInitial());
}
`,
	"lib/api.dart": `Future<void> register(Client client) async {
  await client.post('/users');
}
`,
}

// BackendFiles is a small FastAPI project matching UIFiles.
var BackendFiles = map[string]string{
	"app/users.py": `from fastapi import APIRouter, Depends

router = APIRouter()


class UserCreate(BaseModel):
    name: str


class AdminCreate(UserCreate, BaseModel):
    level: int = 1


@router.get("/users")
def list_users(db=Depends(get_db)):
    return fetch_users(db)


@router.post("/users")
def create_user(payload: UserCreate):
    return payload


def fetch_users(db):
    return db.query(User).all()
`,
}

// Contracts declares one covered endpoint, one with a method the backend
// lacks and one the backend does not define.
const Contracts = `contracts:
  - path: /users
    method: GET
  - path: /users
    method: PATCH
  - path: /orders
    method: GET
`

// Project holds the directories written by SampleProject.
type Project struct {
	UIDir         string
	BackendDir    string
	ContractsPath string
	UI            *source.Tree
	Backend       *source.Tree
}

// SampleProject writes UIFiles, BackendFiles and Contracts to temporary
// directories.
//
// Extracting it yields 10 entities (3 UI, 7 backend), 6 relationships
// (3 calls, 2 uses, 1 extends) and 3 api mappings, one of them from a call
// site outside any declaration.
func SampleProject(t *testing.T) *Project {
	t.Helper()
	p := &Project{}
	p.UIDir, p.UI = TestTree(t, UIFiles)
	p.BackendDir, p.Backend = TestTree(t, BackendFiles)
	dir := t.TempDir()
	WriteFile(t, dir, "contracts.yaml", Contracts)
	p.ContractsPath = filepath.Join(dir, "contracts.yaml")
	return p
}
